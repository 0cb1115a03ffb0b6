package newsletter

import (
	"strings"
	"time"
)

// Subscriber represents a newsletter recipient, keyed by email
type Subscriber struct {
	Email            string    `json:"email" storm:"id"`
	Name             string    `json:"name,omitempty"`
	SubscribedAt     time.Time `json:"subscribedAt"`
	Confirmed        bool      `json:"confirmed" storm:"index"`
	Tags             []string  `json:"tags,omitempty"`
	UnsubscribeToken string    `json:"unsubscribeToken" storm:"index"`
}

// NewSubscriber returns a pending subscriber with a freshly minted token.
// The token doubles as the confirmation credential and is never rotated.
func NewSubscriber(email, name string) (*Subscriber, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		Email:            email,
		Name:             name,
		SubscribedAt:     time.Now().UTC(),
		Confirmed:        false,
		UnsubscribeToken: token,
	}, nil
}

// HasTag reports whether the subscriber carries the given tag
func (s *Subscriber) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the subscriber carries at least one of the given
// tags. Campaign targeting uses OR semantics across tags, unlike the
// single-tag contains check of SubscriberFilter.
func (s *Subscriber) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present
func (s *Subscriber) AddTag(tag string) {
	if !s.HasTag(tag) {
		s.Tags = append(s.Tags, tag)
	}
}

// RemoveTag drops a tag; no-op if absent
func (s *Subscriber) RemoveTag(tag string) {
	for i, t := range s.Tags {
		if t == tag {
			s.Tags = append(s.Tags[:i], s.Tags[i+1:]...)
			return
		}
	}
}

// SubscriberFilter narrows a subscriber listing. Fields compose with AND:
// Tag restricts to subscribers whose tag set contains it, Confirmed matches
// the flag exactly, Search matches case-insensitively against email or name.
type SubscriberFilter struct {
	Tag       string
	Confirmed *bool
	Search    string
}

// Match reports whether the subscriber passes all set filter fields
func (f SubscriberFilter) Match(s *Subscriber) bool {
	if f.Tag != "" && !s.HasTag(f.Tag) {
		return false
	}
	if f.Confirmed != nil && s.Confirmed != *f.Confirmed {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(s.Email), needle) &&
			!strings.Contains(strings.ToLower(s.Name), needle) {
			return false
		}
	}
	return true
}

// SubscriberStore is the interface that wraps subscriber persistence.
// Mutations persist synchronously before returning. Racing writers on the
// same email follow last-write-wins; the store does not serialize them.
type SubscriberStore interface {
	// Find returns (nil, nil) when no record exists for the email
	Find(email string) (*Subscriber, error)
	Upsert(s *Subscriber) error
	Delete(email string) error
	List(filter SubscriberFilter) ([]Subscriber, error)
}

// SubscriptionService governs the subscriber lifecycle:
// absent -> pending -> confirmed, with removal valid from either state.
type SubscriptionService interface {
	Subscribe(email, name string) (*SubscriptionResult, error)
	Confirm(email, token string) (*SubscriptionResult, error)
	Unsubscribe(email, token string) (*SubscriptionResult, error)
}

// Subscription outcomes
const (
	OutcomeConfirmationSent   = "confirmation sent"
	OutcomeConfirmationResent = "confirmation resent"
	OutcomeConfirmed          = "confirmed"
	OutcomeAlreadyConfirmed   = "already confirmed"
	OutcomeRemoved            = "removed"
)

// SubscriptionResult reports the outcome of a lifecycle transition
type SubscriptionResult struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

type SubscriptionRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SubscriptionResponse struct {
	Message string `json:"message"`
}
