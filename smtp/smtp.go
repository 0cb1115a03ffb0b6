// Package smtp implements newsletter.EmailTransport over plain SMTP.
// Useful for self-hosted deployments and local development (MailHog etc).
package smtp

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/gitmesh/newsletter"
)

// Transport sends email through an SMTP relay
type Transport struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

var _ newsletter.EmailTransport = (*Transport)(nil)

// NewTransport returns an SMTP transport
func NewTransport(host string, port int, username, password, from, fromName string) *Transport {
	return &Transport{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// SendEmail dials the relay and sends one message. SMTP gives no HTTP
// status; failures are classified upstream by error text.
func (t *Transport) SendEmail(_ context.Context, params *newsletter.SendEmailParams) (*newsletter.SendResult, error) {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.from, t.fromName)
	m.SetAddressHeader("To", params.To, params.ToName)
	m.SetHeader("Subject", params.Subject)
	m.SetBody("text/html", params.HTML)
	if params.Text != "" {
		m.AddAlternative("text/plain", params.Text)
	}

	d := gomail.NewDialer(t.host, t.port, t.username, t.password)
	if err := d.DialAndSend(m); err != nil {
		return &newsletter.SendResult{
			Success: false,
			Err:     errors.Wrapf(err, "failed to send mail to %s", params.To),
		}, nil
	}

	return &newsletter.SendResult{Success: true, SentAt: time.Now()}, nil
}

// SendBulkEmail sends messages sequentially over the relay
func (t *Transport) SendBulkEmail(ctx context.Context, paramsList []*newsletter.SendEmailParams) ([]*newsletter.SendResult, error) {
	results := make([]*newsletter.SendResult, len(paramsList))
	for i, p := range paramsList {
		result, err := t.SendEmail(ctx, p)
		if err != nil {
			result = &newsletter.SendResult{Success: false, Err: err}
		}
		results[i] = result
	}
	return results, nil
}
