// Package subscription implements the subscriber lifecycle state machine:
// absent -> pending -> confirmed, with token-authenticated removal from
// either state.
package subscription

import (
	"net/mail"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/gitmesh/newsletter"
)

// Service implements newsletter.SubscriptionService on top of a
// SubscriberStore and the outbound mail service.
type Service struct {
	store  newsletter.SubscriberStore
	mailer newsletter.NewsletterService
	logger zerolog.Logger
}

var _ newsletter.SubscriptionService = (*Service)(nil)

func NewService(store newsletter.SubscriberStore, mailer newsletter.NewsletterService, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		logger: logger,
	}
}

// Subscribe creates a pending record and sends the confirmation email.
// Re-subscribing a pending address resends the confirmation with the
// existing token; a confirmed address is rejected.
func (s *Service) Subscribe(email, name string) (*newsletter.SubscriptionResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.store.Find(email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		sub, err := newsletter.NewSubscriber(email, name)
		if err != nil {
			return nil, err
		}
		if err := s.store.Upsert(sub); err != nil {
			return nil, err
		}
		if err := s.mailer.SendConfirmationEmail(sub); err != nil {
			return nil, err
		}

		s.logger.Info().Str("email", email).Msg("new pending subscription")
		return &newsletter.SubscriptionResult{
			Outcome: newsletter.OutcomeConfirmationSent,
			Message: "A confirmation email has been sent to " + email + ". Click the link in the email to activate your subscription.",
		}, nil
	}

	if existing.Confirmed {
		return nil, newsletter.Errorf(newsletter.ErrConflict, "already subscribed")
	}

	// Pending: resend with the existing token, never mint a new one.
	if err := s.mailer.SendConfirmationEmail(existing); err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", email).Msg("confirmation resent")
	return &newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeConfirmationResent,
		Message: "Your subscription is pending. The confirmation email has been resent to " + email + ".",
	}, nil
}

// Confirm completes double opt-in. Idempotent: confirming an already
// confirmed address succeeds without a duplicate welcome email.
func (s *Service) Confirm(email, token string) (*newsletter.SubscriptionResult, error) {
	sub, err := s.store.Find(email)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.UnsubscribeToken != token {
		return nil, newsletter.Errorf(newsletter.ErrNotFound, "invalid or expired link")
	}

	if sub.Confirmed {
		return &newsletter.SubscriptionResult{
			Outcome: newsletter.OutcomeAlreadyConfirmed,
			Message: "Your subscription is already confirmed.",
		}, nil
	}

	sub.Confirmed = true
	if err := s.store.Upsert(sub); err != nil {
		return nil, err
	}

	// The subscription is durably confirmed even if the welcome email
	// cannot be delivered.
	if err := s.mailer.SendWelcomeEmail(sub); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("welcome email failed")
		sentry.CaptureException(err)
	}

	s.logger.Info().Str("email", email).Msg("subscription confirmed")
	return &newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeConfirmed,
		Message: "Your subscription is confirmed. Thank you!",
	}, nil
}

// Unsubscribe deletes the record on an exact email+token match, valid from
// either the pending or the confirmed state.
func (s *Service) Unsubscribe(email, token string) (*newsletter.SubscriptionResult, error) {
	sub, err := s.store.Find(email)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.UnsubscribeToken != token {
		return nil, newsletter.Errorf(newsletter.ErrNotFound, "not found or already removed")
	}

	if err := s.store.Delete(email); err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", email).Msg("subscription removed")
	return &newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeRemoved,
		Message: "You have been unsubscribed.",
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return newsletter.Errorf(newsletter.ErrInvalid, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return newsletter.Errorf(newsletter.ErrInvalid, "invalid email address")
	}
	return nil
}
