package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/gitmesh/newsletter"
)

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) error {
	var req newsletter.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "invalid request body")
	}

	logger := hlog.FromRequest(r)
	logger.Info().Str("email", req.Email).Msg("subscription request")

	result, err := s.SubscriptionService.Subscribe(req.Email, req.Name)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, &newsletter.SubscriptionResponse{
		Message: result.Message,
	})

	return nil
}

// confirmHandler completes double opt-in. It is browser-navigated, so
// outcomes are rendered as HTML pages rather than JSON.
func (s *Server) confirmHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	email := query.Get("email")
	token := query.Get("token")

	if email == "" || token == "" {
		renderPage(w, http.StatusBadRequest, "Invalid link", "The confirmation link is incomplete. Please use the link from your email.")
		return
	}

	result, err := s.SubscriptionService.Confirm(email, token)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("email", email).Msg("confirm failed")
		renderPage(w, statusFromCode(newsletter.ErrorCode(err)), "Invalid link", newsletter.ErrorMessage(err))
		return
	}

	switch result.Outcome {
	case newsletter.OutcomeAlreadyConfirmed:
		renderPage(w, http.StatusOK, "Already confirmed", result.Message)
	default:
		renderPage(w, http.StatusOK, "Subscription confirmed", result.Message)
	}
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	//nolint:errcheck
	json.NewEncoder(w).Encode(response)
}
