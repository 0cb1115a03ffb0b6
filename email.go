package newsletter

import (
	"context"
	"time"
)

// SendEmailParams is one outbound message handed to a transport
type SendEmailParams struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// SendResult is the transport-level outcome of a single send attempt.
// A failed API call is reported through Success/StatusCode/Err with a nil
// top-level error; transports reserve returned errors for request-building
// failures.
type SendResult struct {
	Success    bool
	MessageID  string
	StatusCode int
	Err        error
	SentAt     time.Time
}

// EmailTransport is the capability interface over an email provider
// (SendGrid, SES, SMTP). Adapters are selected at startup via config;
// retry and batching policy live above this interface.
type EmailTransport interface {
	SendEmail(ctx context.Context, params *SendEmailParams) (*SendResult, error)
	SendBulkEmail(ctx context.Context, params []*SendEmailParams) ([]*SendResult, error)
}
