package mail

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gitmesh/newsletter"
	"github.com/gitmesh/newsletter/mock"
)

func confirmedSubscriber(email string, tags ...string) newsletter.Subscriber {
	return newsletter.Subscriber{
		Email:            email,
		SubscribedAt:     time.Now().UTC(),
		Confirmed:        true,
		Tags:             tags,
		UnsubscribeToken: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
}

func newTestService(transport newsletter.EmailTransport, subscribers *mock.SubscriberStore, deliveryLogs *mock.DeliveryLogStore, posts *mock.PostService) *Service {
	templates := newTestTemplates()
	sender := NewRetryingSender(transport, RetryConfig{
		MaxRetries:        0,
		BaseDelay:         time.Millisecond,
		MaxDelay:          time.Millisecond,
		BackoffMultiplier: 2,
	}, zerolog.Nop())
	sender.sleep = func(time.Duration) {}

	runner := NewBulkCampaignRunner(sender, 5, 0, zerolog.Nop())
	runner.sleep = func(time.Duration) {}

	var postService newsletter.PostService
	if posts != nil {
		postService = posts
	}

	return NewService(subscribers, deliveryLogs, postService, templates, sender, runner, zerolog.Nop())
}

func TestSendCampaign_NoMatchingSubscribers(t *testing.T) {
	subscribers := new(mock.SubscriberStore)
	subscribers.On("List", testifymock.Anything).Return([]newsletter.Subscriber{}, nil)

	ct := &concurrencyTransport{}
	svc := newTestService(ct, subscribers, new(mock.DeliveryLogStore), nil)

	result, err := svc.SendCampaign(&newsletter.CampaignRequest{TargetTags: []string{"nonexistent"}}, "admin@gitmesh.dev")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no subscribers match")
	assert.Equal(t, int64(0), ct.calls, "transport must not be invoked")
}

func TestSendCampaign_TagTargetingOrSemantics(t *testing.T) {
	subscribers := new(mock.SubscriberStore)
	subscribers.On("List", testifymock.Anything).Return([]newsletter.Subscriber{
		confirmedSubscriber("dev1@x.com", "dev"),
		confirmedSubscriber("dev2@x.com", "dev"),
		confirmedSubscriber("ops@x.com", "ops"),
	}, nil)

	deliveryLogs := new(mock.DeliveryLogStore)
	deliveryLogs.On("Append", testifymock.Anything).Return(nil)

	svc := newTestService(&concurrencyTransport{}, subscribers, deliveryLogs, nil)

	result, err := svc.SendCampaign(&newsletter.CampaignRequest{
		Subject:       "Dev digest",
		CustomContent: "For developers only.",
		TargetTags:    []string{"dev"},
	}, "admin@gitmesh.dev")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalSubscribers, "only dev-tagged subscribers targeted")
	assert.Equal(t, 2, result.TotalSent)
	assert.Equal(t, 0, result.TotalFailed)
	deliveryLogs.AssertNumberOfCalls(t, "Append", 1)
}

func TestSendCampaign_WritesAuditEntry(t *testing.T) {
	subscribers := new(mock.SubscriberStore)
	subscribers.On("List", testifymock.Anything).Return([]newsletter.Subscriber{
		confirmedSubscriber("ok@x.com"),
		confirmedSubscriber("bad@x.com"),
	}, nil)

	var captured *newsletter.DeliveryLog
	deliveryLogs := new(mock.DeliveryLogStore)
	deliveryLogs.On("Append", testifymock.Anything).Run(func(args testifymock.Arguments) {
		captured = args.Get(0).(*newsletter.DeliveryLog)
	}).Return(nil)

	ct := &concurrencyTransport{failFor: map[string]bool{"bad@x.com": true}}
	svc := newTestService(ct, subscribers, deliveryLogs, nil)

	result, err := svc.SendCampaign(&newsletter.CampaignRequest{Subject: "Issue 7", CustomContent: "hi"}, "admin@gitmesh.dev")

	require.NoError(t, err)
	assert.False(t, result.Success, "partial failure reported, not raised")
	assert.Equal(t, 1, result.TotalSent)
	assert.Equal(t, 1, result.TotalFailed)
	assert.Equal(t, 2, result.TotalSubscribers)

	require.NotNil(t, captured)
	assert.NotEmpty(t, captured.ID)
	assert.Equal(t, newsletter.DeliveryTypeNewsletter, captured.Type)
	assert.Equal(t, "Issue 7", captured.Subject)
	assert.Equal(t, 2, captured.RecipientCount)
	assert.Equal(t, 1, captured.SuccessCount)
	assert.Equal(t, 1, captured.FailureCount)
	require.Len(t, captured.Failures, 1)
	assert.Equal(t, "bad@x.com", captured.Failures[0].Email)
	assert.Equal(t, "admin@gitmesh.dev", captured.AdminUser)
}

func TestSendCampaign_TestEmailSkipsAudit(t *testing.T) {
	subscribers := new(mock.SubscriberStore)
	subscribers.On("Find", "preview@x.com").Return(nil, nil)

	deliveryLogs := new(mock.DeliveryLogStore)

	svc := newTestService(&concurrencyTransport{}, subscribers, deliveryLogs, nil)

	result, err := svc.SendCampaign(&newsletter.CampaignRequest{
		CustomContent: "draft issue",
		TestEmail:     "preview@x.com",
	}, "admin@gitmesh.dev")

	require.NoError(t, err)
	assert.True(t, result.IsTest)
	assert.Equal(t, 1, result.TotalSubscribers)
	assert.Equal(t, 1, result.TotalSent)
	deliveryLogs.AssertNotCalled(t, "Append", testifymock.Anything)
}

func TestSendCampaign_IncludesPosts(t *testing.T) {
	subscribers := new(mock.SubscriberStore)
	subscribers.On("List", testifymock.Anything).Return([]newsletter.Subscriber{
		confirmedSubscriber("a@x.com"),
	}, nil)

	posts := new(mock.PostService)
	posts.On("FindByIDs", []string{"p1", "p2"}).Return([]newsletter.Post{
		{ID: "p1", Title: "First", URL: "https://gitmesh.dev/blog/first"},
		{ID: "p2", Title: "Second", URL: "https://gitmesh.dev/blog/second"},
	}, nil)

	var captured *newsletter.DeliveryLog
	deliveryLogs := new(mock.DeliveryLogStore)
	deliveryLogs.On("Append", testifymock.Anything).Run(func(args testifymock.Arguments) {
		captured = args.Get(0).(*newsletter.DeliveryLog)
	}).Return(nil)

	svc := newTestService(&concurrencyTransport{}, subscribers, deliveryLogs, posts)

	result, err := svc.SendCampaign(&newsletter.CampaignRequest{IncludePosts: []string{"p1", "p2"}}, "admin@gitmesh.dev")

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, captured)
	assert.Equal(t, "Newsletter - 2 New Posts", captured.Subject, "subject derived from post count")
	posts.AssertExpectations(t)
}

func TestSendConfirmationEmail_LogsOutcome(t *testing.T) {
	var captured *newsletter.DeliveryLog
	deliveryLogs := new(mock.DeliveryLogStore)
	deliveryLogs.On("Append", testifymock.Anything).Run(func(args testifymock.Arguments) {
		captured = args.Get(0).(*newsletter.DeliveryLog)
	}).Return(nil)

	svc := newTestService(&concurrencyTransport{}, new(mock.SubscriberStore), deliveryLogs, nil)

	sub := confirmedSubscriber("a@x.com")
	sub.Confirmed = false
	err := svc.SendConfirmationEmail(&sub)

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, newsletter.DeliveryTypeConfirmation, captured.Type)
	assert.Equal(t, 1, captured.SuccessCount)
}

func TestSendWelcomeEmail_FailureReported(t *testing.T) {
	deliveryLogs := new(mock.DeliveryLogStore)
	deliveryLogs.On("Append", testifymock.Anything).Return(nil)

	ct := &concurrencyTransport{failFor: map[string]bool{"a@x.com": true}}
	svc := newTestService(ct, new(mock.SubscriberStore), deliveryLogs, nil)

	sub := confirmedSubscriber("a@x.com")
	err := svc.SendWelcomeEmail(&sub)

	require.Error(t, err)
	assert.Contains(t, newsletter.ErrorMessage(err), "welcome")
}
