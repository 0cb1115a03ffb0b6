// Package mock provides testify mocks for the domain interfaces.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gitmesh/newsletter"
)

// SubscriberStore mocks newsletter.SubscriberStore
type SubscriberStore struct {
	mock.Mock
}

func (m *SubscriberStore) Find(email string) (*newsletter.Subscriber, error) {
	args := m.Called(email)
	sub, _ := args.Get(0).(*newsletter.Subscriber)
	return sub, args.Error(1)
}

func (m *SubscriberStore) Upsert(s *newsletter.Subscriber) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *SubscriberStore) Delete(email string) error {
	args := m.Called(email)
	return args.Error(0)
}

func (m *SubscriberStore) List(filter newsletter.SubscriberFilter) ([]newsletter.Subscriber, error) {
	args := m.Called(filter)
	subs, _ := args.Get(0).([]newsletter.Subscriber)
	return subs, args.Error(1)
}

// DeliveryLogStore mocks newsletter.DeliveryLogStore
type DeliveryLogStore struct {
	mock.Mock
}

func (m *DeliveryLogStore) Append(entry *newsletter.DeliveryLog) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *DeliveryLogStore) List(limit int) ([]newsletter.DeliveryLog, error) {
	args := m.Called(limit)
	entries, _ := args.Get(0).([]newsletter.DeliveryLog)
	return entries, args.Error(1)
}

// PostService mocks newsletter.PostService
type PostService struct {
	mock.Mock
}

func (m *PostService) FindByIDs(ids []string) ([]newsletter.Post, error) {
	args := m.Called(ids)
	posts, _ := args.Get(0).([]newsletter.Post)
	return posts, args.Error(1)
}

func (m *PostService) Recent(limit int) ([]newsletter.Post, error) {
	args := m.Called(limit)
	posts, _ := args.Get(0).([]newsletter.Post)
	return posts, args.Error(1)
}

// NewsletterService mocks newsletter.NewsletterService
type NewsletterService struct {
	mock.Mock
}

func (m *NewsletterService) SendConfirmationEmail(s *newsletter.Subscriber) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *NewsletterService) SendWelcomeEmail(s *newsletter.Subscriber) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *NewsletterService) SendCampaign(req *newsletter.CampaignRequest, adminUser string) (*newsletter.CampaignResult, error) {
	args := m.Called(req, adminUser)
	result, _ := args.Get(0).(*newsletter.CampaignResult)
	return result, args.Error(1)
}

// SubscriptionService mocks newsletter.SubscriptionService
type SubscriptionService struct {
	mock.Mock
}

func (m *SubscriptionService) Subscribe(email, name string) (*newsletter.SubscriptionResult, error) {
	args := m.Called(email, name)
	result, _ := args.Get(0).(*newsletter.SubscriptionResult)
	return result, args.Error(1)
}

func (m *SubscriptionService) Confirm(email, token string) (*newsletter.SubscriptionResult, error) {
	args := m.Called(email, token)
	result, _ := args.Get(0).(*newsletter.SubscriptionResult)
	return result, args.Error(1)
}

func (m *SubscriptionService) Unsubscribe(email, token string) (*newsletter.SubscriptionResult, error) {
	args := m.Called(email, token)
	result, _ := args.Get(0).(*newsletter.SubscriptionResult)
	return result, args.Error(1)
}

// EmailTransport mocks newsletter.EmailTransport
type EmailTransport struct {
	mock.Mock
}

func (m *EmailTransport) SendEmail(ctx context.Context, params *newsletter.SendEmailParams) (*newsletter.SendResult, error) {
	args := m.Called(ctx, params)
	result, _ := args.Get(0).(*newsletter.SendResult)
	return result, args.Error(1)
}

func (m *EmailTransport) SendBulkEmail(ctx context.Context, params []*newsletter.SendEmailParams) ([]*newsletter.SendResult, error) {
	args := m.Called(ctx, params)
	results, _ := args.Get(0).([]*newsletter.SendResult)
	return results, args.Error(1)
}
