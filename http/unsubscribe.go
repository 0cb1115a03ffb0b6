package http

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/gitmesh/newsletter"
)

// unsubscribeFormHandler shows a confirmation page with a form so that
// mail clients prefetching the link do not unsubscribe anyone.
func (s *Server) unsubscribeFormHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	email := query.Get("email")
	token := query.Get("token")

	if email == "" || token == "" {
		renderPage(w, http.StatusBadRequest, "Invalid link", "The unsubscribe link is incomplete. Please use the link from your email.")
		return
	}

	renderUnsubscribeForm(w, email, token)
}

func (s *Server) unsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderPage(w, http.StatusBadRequest, "Invalid request", "The form could not be read.")
		return
	}
	email := r.PostFormValue("email")
	token := r.PostFormValue("token")

	result, err := s.SubscriptionService.Unsubscribe(email, token)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("email", email).Msg("unsubscribe failed")
		renderPage(w, statusFromCode(newsletter.ErrorCode(err)), "Not found", newsletter.ErrorMessage(err))
		return
	}

	renderPage(w, http.StatusOK, "Unsubscribed", result.Message)
}
