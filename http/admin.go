package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/gitmesh/newsletter"
)

type contextKey string

const adminUserKey contextKey = "adminUser"

// adminOnly gates a subrouter behind the admin session and allow-list.
// The authenticated admin email is placed on the request context for
// handlers that need it (audit attribution).
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessions.Get(r, sessionName)
		email, ok := session.Values["email"].(string)
		if !ok || !s.allowList[email] {
			writeJSONResponse(w, http.StatusUnauthorized, map[string]string{
				"message": "admin session required",
			})
			return
		}

		ctx := context.WithValue(r.Context(), adminUserKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminUser(r *http.Request) string {
	if email, ok := r.Context().Value(adminUserKey).(string); ok {
		return email
	}
	return ""
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "invalid request body")
	}

	if s.adminPass == "" || req.Password != s.adminPass || !s.allowList[req.Email] {
		return NewError(nil, http.StatusUnauthorized, "invalid credentials")
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values["email"] = req.Email
	if err := session.Save(r, w); err != nil {
		return err
	}

	hlog.FromRequest(r).Info().Str("admin", req.Email).Msg("admin login")
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged in"})
	return nil
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
	return nil
}

func (s *Server) sendNewsletterHandler(w http.ResponseWriter, r *http.Request) error {
	var req newsletter.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "invalid request body")
	}

	admin := adminUser(r)
	hlog.FromRequest(r).Info().
		Str("admin", admin).
		Strs("tags", req.TargetTags).
		Bool("test", req.IsTest()).
		Msg("campaign send requested")

	result, err := s.NewsletterService.SendCampaign(&req, admin)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, result)
	return nil
}

func (s *Server) listSubscribersHandler(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	filter := newsletter.SubscriberFilter{
		Tag:    query.Get("tag"),
		Search: query.Get("search"),
	}
	if v := query.Get("confirmed"); v != "" {
		confirmed := v == "true" || v == "1"
		filter.Confirmed = &confirmed
	}

	subscribers, err := s.SubscriberStore.List(filter)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"subscribers": subscribers,
		"total":       len(subscribers),
	})
	return nil
}

func (s *Server) updateSubscriberHandler(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email string   `json:"email"`
		Name  *string  `json:"name,omitempty"`
		Tags  []string `json:"tags,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return NewError(nil, http.StatusBadRequest, "email is required")
	}

	sub, err := s.SubscriberStore.Find(req.Email)
	if err != nil {
		return err
	}
	if sub == nil {
		return newsletter.Errorf(newsletter.ErrNotFound, "subscriber %s not found", req.Email)
	}

	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.Tags != nil {
		sub.Tags = req.Tags
	}

	if err := s.SubscriberStore.Upsert(sub); err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, sub)
	return nil
}

// Bulk actions over a list of subscriber emails
const (
	bulkActionAddTags    = "add_tags"
	bulkActionRemoveTags = "remove_tags"
	bulkActionSetTags    = "set_tags"
	bulkActionDelete     = "delete"
)

func (s *Server) bulkSubscribersHandler(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Action string   `json:"action"`
		Emails []string `json:"emails"`
		Tags   []string `json:"tags,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "invalid request body")
	}
	if len(req.Emails) == 0 {
		return NewError(nil, http.StatusBadRequest, "emails is required")
	}
	switch req.Action {
	case bulkActionAddTags, bulkActionRemoveTags, bulkActionSetTags, bulkActionDelete:
	default:
		return NewError(nil, http.StatusBadRequest, "unknown action "+req.Action)
	}

	updated := 0
	var failed []string
	for _, email := range req.Emails {
		if err := s.applyBulkAction(req.Action, email, req.Tags); err != nil {
			failed = append(failed, email)
			continue
		}
		updated++
	}

	hlog.FromRequest(r).Info().
		Str("admin", adminUser(r)).
		Str("action", req.Action).
		Int("updated", updated).
		Msg("bulk subscriber update")

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"updated": updated,
		"failed":  failed,
	})
	return nil
}

func (s *Server) applyBulkAction(action, email string, tags []string) error {
	if action == bulkActionDelete {
		return s.SubscriberStore.Delete(email)
	}

	sub, err := s.SubscriberStore.Find(email)
	if err != nil {
		return err
	}
	if sub == nil {
		return newsletter.Errorf(newsletter.ErrNotFound, "subscriber %s not found", email)
	}

	switch action {
	case bulkActionAddTags:
		for _, tag := range tags {
			sub.AddTag(tag)
		}
	case bulkActionRemoveTags:
		for _, tag := range tags {
			sub.RemoveTag(tag)
		}
	case bulkActionSetTags:
		sub.Tags = tags
	default:
		return newsletter.Errorf(newsletter.ErrInvalid, "unknown action %q", action)
	}

	return s.SubscriberStore.Upsert(sub)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) error {
	entries, err := s.DeliveryLogStore.List(50)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"history": entries,
		"total":   len(entries),
	})
	return nil
}
