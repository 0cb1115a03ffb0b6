package http

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/gitmesh/newsletter"
)

const (
	shutdownTimeout = 1 * time.Second

	sessionName = "gitmesh_admin"
)

// Server represents HTTP server
type Server struct {
	ln     net.Listener
	server *http.Server
	router *mux.Router

	sessions  sessions.Store
	allowList map[string]bool
	adminPass string

	Addr   string
	Domain string

	SubscriptionService newsletter.SubscriptionService
	NewsletterService   newsletter.NewsletterService
	SubscriberStore     newsletter.SubscriberStore
	DeliveryLogStore    newsletter.DeliveryLogStore
}

// NewServer creates a new HTTP server. Admin routes are gated by a single
// session middleware over the allow-list; handlers never perform their own
// auth checks.
func NewServer(sessionKey, adminPass string, allowList []string) (*Server, error) {
	cookieStore := sessions.NewCookieStore([]byte(sessionKey))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		server:    &http.Server{},
		router:    mux.NewRouter().StrictSlash(true),
		sessions:  cookieStore,
		adminPass: adminPass,
		allowList: make(map[string]bool, len(allowList)),
	}
	for _, email := range allowList {
		s.allowList[email] = true
	}

	zlog := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger()
	s.router.Use(hlog.NewHandler(zlog))
	s.router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	}))
	s.router.Use(hlog.UserAgentHandler("user_agent"))
	s.router.Use(hlog.RefererHandler("referer"))
	s.router.Use(hlog.RequestIDHandler("req_id", "Request-Id"))

	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	s.router.Use(sentryHandler.Handle)

	s.server.Handler = http.HandlerFunc(s.serveHTTP)

	s.router.HandleFunc("/health", s.healthCheckHandler)
	s.router.HandleFunc("/subscribe", s.Error(s.subscribeHandler)).Methods(http.MethodPost)
	s.router.HandleFunc("/confirm", s.confirmHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/unsubscribe", s.unsubscribeFormHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/unsubscribe", s.unsubscribeHandler).Methods(http.MethodPost)

	s.router.HandleFunc("/admin/login", s.Error(s.loginHandler)).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/logout", s.Error(s.logoutHandler)).Methods(http.MethodPost)

	admin := s.router.PathPrefix("/admin/newsletter").Subrouter()
	admin.Use(s.adminOnly)
	admin.HandleFunc("/send", s.Error(s.sendNewsletterHandler)).Methods(http.MethodPost)
	admin.HandleFunc("/subscribers", s.Error(s.listSubscribersHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/subscribers", s.Error(s.updateSubscriberHandler)).Methods(http.MethodPut)
	admin.HandleFunc("/subscribers", s.Error(s.bulkSubscribersHandler)).Methods(http.MethodPost)
	admin.HandleFunc("/history", s.Error(s.historyHandler)).Methods(http.MethodGet)

	return s, nil
}

// Scheme returns scheme
func (s *Server) Scheme() string {
	if s.UseTLS() {
		return "https"
	}
	return "http"
}

// UseTLS checks if server use TLS or not
func (s *Server) UseTLS() bool {
	return s.Domain != ""
}

// Port returns server port
func (s *Server) Port() int {
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// URL returns server URL
func (s *Server) URL() string {
	scheme, port := s.Scheme(), s.Port()

	domain := "localhost"
	if s.Domain != "" {
		domain = s.Domain
	}

	if port == 80 || port == 443 || flag.Lookup("test.v") != nil {
		return fmt.Sprintf("%s://%s", scheme, domain)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, domain, s.Port())
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Open opens a connection to HTTP server
func (s *Server) Open() (err error) {
	s.ln, err = net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Errorf("failed to listen to port %s: %v", s.Addr, err)
	}

	go func() {
		_ = s.server.Serve(s.ln)
	}()

	return nil
}

// Close shutdowns HTTP server
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
