package newsletter

import "time"

// Post is blog post metadata included in a campaign body
type Post struct {
	ID        string    `json:"id" storm:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
}

// PostService supplies post metadata for campaign bodies
type PostService interface {
	FindByIDs(ids []string) ([]Post, error)
	Recent(limit int) ([]Post, error)
}

// CampaignRequest describes one admin-triggered newsletter send.
// It is ephemeral: resolved, executed and summarized but never persisted.
type CampaignRequest struct {
	Subject       string   `json:"subject,omitempty"`
	CustomContent string   `json:"customContent,omitempty"`
	IncludePosts  []string `json:"includePosts,omitempty"`
	TargetTags    []string `json:"tags,omitempty"`
	TestEmail     string   `json:"testEmail,omitempty"`
}

// IsTest reports whether the request is a single-recipient dry run
func (r *CampaignRequest) IsTest() bool {
	return r.TestEmail != ""
}

// CampaignResult summarizes a campaign run. Partial failure is not an
// error: callers always get full counts, with Success true only when no
// recipient failed.
type CampaignResult struct {
	Success          bool              `json:"success"`
	TotalSent        int               `json:"totalSent"`
	TotalFailed      int               `json:"totalFailed"`
	TotalSubscribers int               `json:"totalSubscribers"`
	Failed           []DeliveryFailure `json:"failed,omitempty"`
	IsTest           bool              `json:"isTest"`
}

// NewsletterService is the interface that wraps outbound email operations
type NewsletterService interface {
	SendConfirmationEmail(s *Subscriber) error
	SendWelcomeEmail(s *Subscriber) error
	SendCampaign(req *CampaignRequest, adminUser string) (*CampaignResult, error)
}
