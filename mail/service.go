package mail

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/gitmesh/newsletter"
	"github.com/gitmesh/newsletter/pkg/idgen"
)

// Service sends lifecycle and campaign emails and records every run in
// the delivery audit log. It implements newsletter.NewsletterService.
type Service struct {
	subscribers  newsletter.SubscriberStore
	deliveryLogs newsletter.DeliveryLogStore
	posts        newsletter.PostService
	templates    *Templates
	sender       *RetryingSender
	runner       *BulkCampaignRunner
	logger       zerolog.Logger
}

var _ newsletter.NewsletterService = (*Service)(nil)

// NewService wires the delivery pipeline: templates feed the retrying
// sender, campaigns fan out through the bulk runner.
func NewService(
	subscribers newsletter.SubscriberStore,
	deliveryLogs newsletter.DeliveryLogStore,
	posts newsletter.PostService,
	templates *Templates,
	sender *RetryingSender,
	runner *BulkCampaignRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		subscribers:  subscribers,
		deliveryLogs: deliveryLogs,
		posts:        posts,
		templates:    templates,
		sender:       sender,
		runner:       runner,
		logger:       logger,
	}
}

// SendConfirmationEmail delivers the double opt-in email for a pending
// subscriber and records the outcome.
func (s *Service) SendConfirmationEmail(sub *newsletter.Subscriber) error {
	confirmURL := s.templates.ConfirmURL(sub.Email, sub.UnsubscribeToken)
	email, err := s.templates.ConfirmationEmail(sub.Email, sub.Name, confirmURL)
	if err != nil {
		return err
	}

	return s.sendLifecycle(sub, email, newsletter.DeliveryTypeConfirmation)
}

// SendWelcomeEmail delivers the welcome email after confirmation
func (s *Service) SendWelcomeEmail(sub *newsletter.Subscriber) error {
	unsubURL := s.templates.UnsubscribeURL(sub.Email, sub.UnsubscribeToken)
	email, err := s.templates.WelcomeEmail(sub.Email, sub.Name, unsubURL)
	if err != nil {
		return err
	}

	return s.sendLifecycle(sub, email, newsletter.DeliveryTypeWelcome)
}

func (s *Service) sendLifecycle(sub *newsletter.Subscriber, email *Email, deliveryType string) error {
	result := s.sender.Send(context.Background(), &newsletter.SendEmailParams{
		To:      sub.Email,
		ToName:  sub.Name,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})

	entry := &newsletter.DeliveryLog{
		ID:             idgen.NewID(),
		Timestamp:      time.Now().UTC(),
		Type:           deliveryType,
		Subject:        email.Subject,
		RecipientCount: 1,
	}
	if result.Success {
		entry.SuccessCount = 1
	} else {
		entry.FailureCount = 1
		entry.Failures = []newsletter.DeliveryFailure{
			{Email: sub.Email, Error: errorText(result.Err)},
		}
	}
	s.appendLog(entry)

	if !result.Success {
		return &newsletter.Error{
			Code:    newsletter.ErrInternal,
			Message: "failed to send " + deliveryType + " email",
			Op:      "mail.sendLifecycle",
			Err:     result.Err,
		}
	}

	return nil
}

// SendCampaign resolves the target list, fans the issue out through the
// bulk runner and, unless this is a test send, appends one audit entry
// summarizing the run.
func (s *Service) SendCampaign(req *newsletter.CampaignRequest, adminUser string) (*newsletter.CampaignResult, error) {
	targets, err := s.resolveTargets(req)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, newsletter.Errorf(newsletter.ErrNotFound, "no subscribers match criteria")
	}

	posts, err := s.resolvePosts(req.IncludePosts)
	if err != nil {
		return nil, err
	}

	subject := CampaignSubject(req.Subject, len(posts))

	paramsList := make([]*newsletter.SendEmailParams, 0, len(targets))
	for i := range targets {
		sub := &targets[i]
		unsubURL := s.templates.UnsubscribeURL(sub.Email, sub.UnsubscribeToken)
		email, err := s.templates.CampaignEmail(sub, posts, req.Subject, req.CustomContent, unsubURL)
		if err != nil {
			return nil, err
		}
		paramsList = append(paramsList, &newsletter.SendEmailParams{
			To:      sub.Email,
			ToName:  sub.Name,
			Subject: email.Subject,
			HTML:    email.HTML,
			Text:    email.Text,
		})
	}

	bulk := s.runner.SendBulk(context.Background(), paramsList)

	failures := make([]newsletter.DeliveryFailure, 0, len(bulk.Failed))
	for _, f := range bulk.Failed {
		failures = append(failures, newsletter.DeliveryFailure{
			Email: f.Params.To,
			Error: errorText(f.Err),
		})
	}

	if !req.IsTest() {
		s.appendLog(&newsletter.DeliveryLog{
			ID:             idgen.NewID(),
			Timestamp:      time.Now().UTC(),
			Type:           newsletter.DeliveryTypeNewsletter,
			Subject:        subject,
			RecipientCount: len(targets),
			SuccessCount:   len(bulk.Successful),
			FailureCount:   len(bulk.Failed),
			Failures:       failures,
			Tags:           req.TargetTags,
			AdminUser:      adminUser,
		})
	}

	return &newsletter.CampaignResult{
		Success:          len(bulk.Failed) == 0,
		TotalSent:        len(bulk.Successful),
		TotalFailed:      len(bulk.Failed),
		TotalSubscribers: len(targets),
		Failed:           failures,
		IsTest:           req.IsTest(),
	}, nil
}

// SendDigest runs a scheduled campaign over the most recent posts.
// Used by the cron trigger in main.
func (s *Service) SendDigest(postLimit int) (*newsletter.CampaignResult, error) {
	if s.posts == nil {
		return nil, newsletter.Errorf(newsletter.ErrInternal, "no post source configured")
	}

	posts, err := s.posts.Recent(postLimit)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, newsletter.Errorf(newsletter.ErrNotFound, "no recent posts to send")
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	return s.SendCampaign(&newsletter.CampaignRequest{IncludePosts: ids}, "scheduler")
}

// resolveTargets picks campaign recipients: confirmed subscribers carrying
// at least one of the requested tags (OR across tags), or every confirmed
// subscriber when no tags are given. A test email collapses the list to a
// single, possibly synthesized, recipient.
func (s *Service) resolveTargets(req *newsletter.CampaignRequest) ([]newsletter.Subscriber, error) {
	if req.IsTest() {
		sub, err := s.subscribers.Find(req.TestEmail)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			sub, err = newsletter.NewSubscriber(req.TestEmail, "")
			if err != nil {
				return nil, err
			}
		}
		return []newsletter.Subscriber{*sub}, nil
	}

	confirmed := true
	all, err := s.subscribers.List(newsletter.SubscriberFilter{Confirmed: &confirmed})
	if err != nil {
		return nil, err
	}

	if len(req.TargetTags) == 0 {
		return all, nil
	}

	targets := make([]newsletter.Subscriber, 0, len(all))
	for _, sub := range all {
		if sub.HasAnyTag(req.TargetTags) {
			targets = append(targets, sub)
		}
	}
	return targets, nil
}

func (s *Service) resolvePosts(ids []string) ([]newsletter.Post, error) {
	if len(ids) == 0 || s.posts == nil {
		return nil, nil
	}
	return s.posts.FindByIDs(ids)
}

// appendLog writes an audit entry. A failed write is reported but never
// fails the send that already happened.
func (s *Service) appendLog(entry *newsletter.DeliveryLog) {
	if err := s.deliveryLogs.Append(entry); err != nil {
		s.logger.Error().Err(err).Str("type", entry.Type).Msg("failed to append delivery log")
		sentry.CaptureException(err)
	}
}

func errorText(err error) string {
	if err == nil {
		return "send failed"
	}
	return err.Error()
}
