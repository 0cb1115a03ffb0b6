// Package sendgrid implements newsletter.EmailTransport over the
// SendGrid v3 Mail Send API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gitmesh/newsletter"
)

const defaultBaseURL = "https://api.sendgrid.com/v3"

// Transport sends email through the v3 mail/send endpoint
type Transport struct {
	apiKey   string
	from     string
	fromName string
	baseURL  string
	client   *http.Client
}

var _ newsletter.EmailTransport = (*Transport)(nil)

// NewTransport returns a SendGrid transport
func NewTransport(apiKey, from, fromName string) *Transport {
	return &Transport{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// SendEmail delivers a single message
func (t *Transport) SendEmail(ctx context.Context, params *newsletter.SendEmailParams) (*newsletter.SendResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("sendgrid: API key not configured")
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": params.To, "name": params.ToName}}},
		},
		"from":    map[string]string{"email": t.from, "name": t.fromName},
		"subject": params.Subject,
		"content": content(params),
	}

	return t.post(ctx, payload)
}

// SendBulkEmail dispatches messages one by one. The mail/send endpoint
// shares subject and content across all personalizations of a call, and
// campaign bodies differ per recipient (each embeds its own unsubscribe
// link), so messages cannot be folded into a single call.
func (t *Transport) SendBulkEmail(ctx context.Context, paramsList []*newsletter.SendEmailParams) ([]*newsletter.SendResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("sendgrid: API key not configured")
	}

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

func (t *Transport) post(ctx context.Context, payload map[string]interface{}) (*newsletter.SendResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/mail/send", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sendgrid: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &newsletter.SendResult{Success: false, Err: fmt.Errorf("sendgrid: %w", err)}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return &newsletter.SendResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	messageID := resp.Header.Get("X-Message-Id")
	if messageID == "" {
		messageID = uuid.New().String()
	}

	return &newsletter.SendResult{
		Success:    true,
		MessageID:  messageID,
		StatusCode: resp.StatusCode,
		SentAt:     time.Now(),
	}, nil
}

func content(params *newsletter.SendEmailParams) []map[string]string {
	if params.Text != "" {
		return []map[string]string{
			{"type": "text/plain", "value": params.Text},
			{"type": "text/html", "value": params.HTML},
		}
	}
	return []map[string]string{{"type": "text/html", "value": params.HTML}}
}
