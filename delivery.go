package newsletter

import "time"

// Delivery log entry types
const (
	DeliveryTypeNewsletter   = "newsletter"
	DeliveryTypeConfirmation = "confirmation"
	DeliveryTypeWelcome      = "welcome"
)

// DeliveryFailure records one recipient that could not be delivered to
type DeliveryFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// DeliveryLog is one append-only audit record, created once per send run
// and never mutated afterwards. IDs are unique and time-ordered.
type DeliveryLog struct {
	ID             string            `json:"id" storm:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Type           string            `json:"type" storm:"index"`
	Subject        string            `json:"subject"`
	RecipientCount int               `json:"recipientCount"`
	SuccessCount   int               `json:"successCount"`
	FailureCount   int               `json:"failureCount"`
	Failures       []DeliveryFailure `json:"failures,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	AdminUser      string            `json:"adminUser,omitempty"`
}

// DeliveryLogStore is the interface that wraps the audit log.
// Logically append-only: entries are written once and read back for
// reporting, never updated or deleted through this interface.
type DeliveryLogStore interface {
	Append(entry *DeliveryLog) error
	List(limit int) ([]DeliveryLog, error)
}
