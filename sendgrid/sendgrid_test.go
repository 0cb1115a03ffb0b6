package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitmesh/newsletter"
)

type mailSendPayload struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"to"`
	} `json:"personalizations"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// fakeAPI records every mail/send payload it receives.
type fakeAPI struct {
	mu       sync.Mutex
	payloads []mailSendPayload
	status   int
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	var p mailSendPayload
	_ = json.NewDecoder(r.Body).Decode(&p)

	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()

	w.Header().Set("X-Message-Id", "sg-msg")
	status := f.status
	if status == 0 {
		status = http.StatusAccepted
	}
	w.WriteHeader(status)
}

func newTestTransport(t *testing.T, api *fakeAPI) *Transport {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)

	tr := NewTransport("sg-key", "news@gitmesh.dev", "GitMesh")
	tr.baseURL = srv.URL
	return tr
}

func TestSendEmail(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	result, err := tr.SendEmail(context.Background(), &newsletter.SendEmailParams{
		To:      "a@x.com",
		ToName:  "Ada",
		Subject: "Issue 1",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "sg-msg", result.MessageID)

	require.Len(t, api.payloads, 1)
	p := api.payloads[0]
	assert.Equal(t, "Issue 1", p.Subject)
	require.Len(t, p.Personalizations, 1)
	assert.Equal(t, "a@x.com", p.Personalizations[0].To[0].Email)
	require.Len(t, p.Content, 2)
	assert.Equal(t, "text/plain", p.Content[0].Type)
}

func TestSendEmail_APIFailure(t *testing.T) {
	api := &fakeAPI{status: http.StatusTooManyRequests}
	tr := newTestTransport(t, api)

	result, err := tr.SendEmail(context.Background(), &newsletter.SendEmailParams{
		To: "a@x.com", Subject: "x", HTML: "<p>x</p>",
	})

	require.NoError(t, err, "API-level failures are reported in the result")
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusTooManyRequests, result.StatusCode)
	assert.Error(t, result.Err)
}

func TestSendBulkEmail_PerRecipientBodies(t *testing.T) {
	api := &fakeAPI{}
	tr := newTestTransport(t, api)

	paramsList := []*newsletter.SendEmailParams{
		{To: "a@x.com", Subject: "Issue 1", HTML: "<p>unsubscribe token-a</p>"},
		{To: "b@x.com", Subject: "Issue 1", HTML: "<p>unsubscribe token-b</p>"},
		{To: "c@x.com", Subject: "Issue 1", HTML: "<p>unsubscribe token-c</p>"},
	}

	results, err := tr.SendBulkEmail(context.Background(), paramsList)

	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Len(t, api.payloads, 3, "one API call per recipient")

	// Each recipient must receive their own body, never recipient 0's.
	for i, p := range api.payloads {
		require.Len(t, p.Personalizations, 1)
		assert.Equal(t, paramsList[i].To, p.Personalizations[0].To[0].Email)
		require.NotEmpty(t, p.Content)
		assert.Equal(t, paramsList[i].HTML, p.Content[len(p.Content)-1].Value)
	}
}

func TestSendBulkEmail_MissingAPIKey(t *testing.T) {
	tr := NewTransport("", "news@gitmesh.dev", "GitMesh")

	_, err := tr.SendBulkEmail(context.Background(), []*newsletter.SendEmailParams{{To: "a@x.com"}})
	assert.Error(t, err)
}
