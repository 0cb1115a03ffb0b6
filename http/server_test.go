package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gitmesh/newsletter"
	"github.com/gitmesh/newsletter/mock"
)

const (
	testAdminEmail = "admin@gitmesh.dev"
	testAdminPass  = "s3cret"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := NewServer("0123456789abcdef0123456789abcdef", testAdminPass, []string{testAdminEmail})
	require.NoError(t, err)
	return s
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// login authenticates against the admin login endpoint and returns the
// session cookies to attach to subsequent requests.
func login(t *testing.T, s *Server) []*http.Cookie {
	t.Helper()

	req := jsonRequest(t, http.MethodPost, "/admin/login", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPass,
	})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestSubscribeHandler(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Subscribe", "foo@gmail.com", "Foo").Return(&newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeConfirmationSent,
		Message: "A confirmation email has been sent to foo@gmail.com. Click the link in the email to activate your subscription.",
	}, nil)
	s.SubscriptionService = subscriptions

	req := jsonRequest(t, http.MethodPost, "/subscribe", &newsletter.SubscriptionRequest{
		Email: "foo@gmail.com",
		Name:  "Foo",
	})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp newsletter.SubscriptionResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Contains(t, resp.Message, "confirmation email has been sent")
	subscriptions.AssertExpectations(t)
}

func TestSubscribeHandler_AlreadySubscribed(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Subscribe", "foo@gmail.com", "").
		Return(nil, newsletter.Errorf(newsletter.ErrConflict, "already subscribed"))
	s.SubscriptionService = subscriptions

	req := jsonRequest(t, http.MethodPost, "/subscribe", &newsletter.SubscriptionRequest{Email: "foo@gmail.com"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Equal(t, "already subscribed", resp.Message)
}

func TestSubscribeHandler_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	s.SubscriptionService = new(mock.SubscriptionService)

	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmHandler(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Confirm", "foo@gmail.com", "tok123").Return(&newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeConfirmed,
		Message: "Your subscription is confirmed. Thank you!",
	}, nil)
	s.SubscriptionService = subscriptions

	req := httptest.NewRequest(http.MethodGet, "/confirm?email="+url.QueryEscape("foo@gmail.com")+"&token=tok123", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Subscription confirmed")
}

func TestConfirmHandler_MissingParams(t *testing.T) {
	s := newTestServer(t)
	s.SubscriptionService = new(mock.SubscriptionService)

	req := httptest.NewRequest(http.MethodGet, "/confirm?email=foo@gmail.com", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid link")
}

func TestConfirmHandler_InvalidToken(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Confirm", "foo@gmail.com", "wrong").
		Return(nil, newsletter.Errorf(newsletter.ErrNotFound, "invalid or expired link"))
	s.SubscriptionService = subscriptions

	req := httptest.NewRequest(http.MethodGet, "/confirm?email=foo@gmail.com&token=wrong", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired link")
}

func TestUnsubscribeFormHandler(t *testing.T) {
	s := newTestServer(t)
	s.SubscriptionService = new(mock.SubscriptionService)

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?email=foo@gmail.com&token=tok123", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	// GET only renders the form; removal requires the POST below.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<form")
	assert.Contains(t, w.Body.String(), "foo@gmail.com")
}

func TestUnsubscribeHandler(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Unsubscribe", "foo@gmail.com", "tok123").Return(&newsletter.SubscriptionResult{
		Outcome: newsletter.OutcomeRemoved,
		Message: "You have been unsubscribed.",
	}, nil)
	s.SubscriptionService = subscriptions

	form := url.Values{"email": {"foo@gmail.com"}, "token": {"tok123"}}
	req := httptest.NewRequest(http.MethodPost, "/unsubscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You have been unsubscribed.")
}

func TestUnsubscribeHandler_WrongToken(t *testing.T) {
	s := newTestServer(t)

	subscriptions := new(mock.SubscriptionService)
	subscriptions.On("Unsubscribe", "foo@gmail.com", "wrong").
		Return(nil, newsletter.Errorf(newsletter.ErrNotFound, "not found or already removed"))
	s.SubscriptionService = subscriptions

	form := url.Values{"email": {"foo@gmail.com"}, "token": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/unsubscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, tt := range []struct {
		method string
		target string
	}{
		{http.MethodPost, "/admin/newsletter/send"},
		{http.MethodGet, "/admin/newsletter/subscribers"},
		{http.MethodGet, "/admin/newsletter/history"},
	} {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tt.method, tt.target)
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)

	for _, creds := range []map[string]string{
		{"email": testAdminEmail, "password": "wrong"},
		{"email": "intruder@x.com", "password": testAdminPass},
	} {
		req := jsonRequest(t, http.MethodPost, "/admin/login", creds)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestSendNewsletterHandler(t *testing.T) {
	s := newTestServer(t)

	mailer := new(mock.NewsletterService)
	mailer.On("SendCampaign", testifymock.Anything, testAdminEmail).Return(&newsletter.CampaignResult{
		Success:          true,
		TotalSent:        2,
		TotalSubscribers: 2,
	}, nil)
	s.NewsletterService = mailer

	req := jsonRequest(t, http.MethodPost, "/admin/newsletter/send", &newsletter.CampaignRequest{
		Subject:    "Issue 1",
		TargetTags: []string{"dev"},
	})
	for _, c := range login(t, s) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var result newsletter.CampaignResult
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalSent)
	mailer.AssertExpectations(t)
}

func TestListSubscribersHandler(t *testing.T) {
	s := newTestServer(t)

	confirmed := true
	store := new(mock.SubscriberStore)
	store.On("List", newsletter.SubscriberFilter{Tag: "dev", Confirmed: &confirmed}).
		Return([]newsletter.Subscriber{{Email: "a@x.com", Tags: []string{"dev"}}}, nil)
	s.SubscriberStore = store

	req := httptest.NewRequest(http.MethodGet, "/admin/newsletter/subscribers?tag=dev&confirmed=true", nil)
	for _, c := range login(t, s) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Subscribers []newsletter.Subscriber `json:"subscribers"`
		Total       int                     `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "a@x.com", resp.Subscribers[0].Email)
	store.AssertExpectations(t)
}

func TestBulkSubscribersHandler_UnknownAction(t *testing.T) {
	s := newTestServer(t)
	s.SubscriberStore = new(mock.SubscriberStore)

	req := jsonRequest(t, http.MethodPost, "/admin/newsletter/subscribers", map[string]interface{}{
		"action": "explode",
		"emails": []string{"a@x.com"},
	})
	for _, c := range login(t, s) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler(t *testing.T) {
	s := newTestServer(t)

	logs := new(mock.DeliveryLogStore)
	logs.On("List", 50).Return([]newsletter.DeliveryLog{
		{ID: "1", Type: newsletter.DeliveryTypeNewsletter, Subject: "Issue 1"},
	}, nil)
	s.DeliveryLogStore = logs

	req := httptest.NewRequest(http.MethodGet, "/admin/newsletter/history", nil)
	for _, c := range login(t, s) {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		History []newsletter.DeliveryLog `json:"history"`
		Total   int                      `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Issue 1", resp.History[0].Subject)
	logs.AssertExpectations(t)
}
