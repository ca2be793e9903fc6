package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parcelpal/parcelpal/internal/logging"
	"github.com/parcelpal/parcelpal/internal/skill"
	"github.com/parcelpal/parcelpal/internal/store"
)

const (
	// WebhookPath receives the voice platform's request envelopes.
	WebhookPath = "/skill"

	// OAuthCallbackPath is where Google redirects after consent.
	OAuthCallbackPath = "/oauth/callback"

	// DefaultReadTimeout bounds reading one webhook request.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds the full handler including upstream
	// fan-outs; mailbox plus tracking round trips can take a while.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout closes idle keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
)

// HTTPServer is the user-facing listener.
type HTTPServer struct {
	sc         *ServerContext
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates the webhook server on addr.
func NewHTTPServer(sc *ServerContext, addr string) *HTTPServer {
	return &HTTPServer{sc: sc, addr: addr}
}

// Handler builds the route table. Exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+WebhookPath, s.handleWebhook)
	mux.HandleFunc("GET "+OAuthCallbackPath, s.handleOAuthCallback)

	health := NewHealthChecker(s.sc)
	health.RegisterHealthEndpoints(mux)

	return mux
}

// Start runs the listener until Shutdown. Blocking.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.sc.Logger.Info("starting HTTP server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the listener.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.sc.SetShutdown()
	if s.httpServer != nil {
		s.sc.Logger.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleWebhook decodes one request envelope, runs the orchestrator, and
// writes the single response. The orchestrator guarantees a response for
// every decodable request; only malformed JSON gets an HTTP error.
func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.sc.Logger.With("request_id", uuid.NewString())

	var req skill.RequestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("malformed webhook request", logging.Err(err))
		s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, WebhookPath, http.StatusBadRequest, time.Since(start))
		http.Error(w, "malformed request envelope", http.StatusBadRequest)
		return
	}

	resp := s.sc.Orchestrator.Handle(r.Context(), &req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to write webhook response", logging.Err(err))
	}
	s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, WebhookPath, http.StatusOK, time.Since(start))
}

// handleOAuthCallback finishes the account-linking hop: it exchanges the
// authorization code and writes the mail-link record under the phone number
// that rode through the state parameter.
func (s *HTTPServer) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.sc.Logger.With("request_id", uuid.NewString())
	code := r.URL.Query().Get("code")
	phone := r.URL.Query().Get("state")

	status, err := s.completeLink(r.Context(), code, phone)
	s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, OAuthCallbackPath, status, time.Since(start))

	if err != nil {
		logger.Error("account linking failed",
			logging.PhoneHash(phone),
			logging.Err(err))
		http.Error(w, "account linking failed, please ask the skill to text you a new link", status)
		return
	}

	logger.Info("account linked", logging.PhoneHash(phone))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>All set!</h1><p>Your email is linked. You can close this page and ask ParcelPal about your packages.</p></body></html>")
}

func (s *HTTPServer) completeLink(ctx context.Context, code, phone string) (int, error) {
	if code == "" || phone == "" {
		return http.StatusBadRequest, fmt.Errorf("missing code or state parameter")
	}

	set, err := s.sc.OAuth.Exchange(ctx, code)
	if err != nil {
		return http.StatusBadGateway, fmt.Errorf("code exchange failed: %w", err)
	}

	link := &store.MailLinkRecord{
		PhoneNumber:  phone,
		Email:        set.Email,
		AccessToken:  set.AccessToken,
		TokenExpiry:  set.Expiry,
		RefreshToken: set.RefreshToken,
	}
	if err := s.sc.Links.UpsertMailLink(ctx, link); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to persist mail link: %w", err)
	}
	return http.StatusOK, nil
}
