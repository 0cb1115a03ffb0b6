package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"

	"github.com/gitmesh/newsletter"
)

type appHandler func(w http.ResponseWriter, r *http.Request) error

// Error parses errors returned by handlers and writes the JSON error
// envelope. Domain errors map to statuses by code; everything else is a 500.
func (s *Server) Error(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		hlog.FromRequest(r).Error().Msg(err.Error())

		clientError, ok := err.(ClientError)
		if !ok {
			if status := statusFromCode(newsletter.ErrorCode(err)); status != http.StatusInternalServerError {
				clientError = &Error{
					Cause:   err,
					Message: newsletter.ErrorMessage(err),
					Status:  status,
				}
			} else {
				sentry.CaptureException(err)
				w.WriteHeader(http.StatusInternalServerError)
				body := map[string]interface{}{
					"error": newsletter.ErrInternal,
				}
				_ = json.NewEncoder(w).Encode(body)
				return
			}
		}

		body, err := clientError.Body()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		status, headers := clientError.Headers()
		for k, v := range headers {
			w.Header().Set(k, v)
		}

		w.WriteHeader(status)

		_, err = w.Write(body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
}

func statusFromCode(code string) int {
	switch code {
	case newsletter.ErrInvalid, newsletter.ErrConflict:
		return http.StatusBadRequest
	case newsletter.ErrNotFound:
		return http.StatusNotFound
	case newsletter.ErrUnauthorized:
		return http.StatusUnauthorized
	case newsletter.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ClientError is the interface that wraps methods related to error on the client side
type ClientError interface {
	Error() string
	Body() ([]byte, error)
	Headers() (int, map[string]string)
}

// Error represents a detail error message
type Error struct {
	Cause   error  `json:"-"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Body returns response body from error
func (e *Error) Body() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("Error while parsing response body: %v", err)
	}
	return body, nil
}

// Headers returns status and header
func (e *Error) Headers() (int, map[string]string) {
	return e.Status, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
}

// NewError returns new error message
func NewError(err error, status int, message string) error {
	return &Error{
		Cause:   err,
		Message: message,
		Status:  status,
	}
}
