package server

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/parcelpal/parcelpal/internal/google"
	"github.com/parcelpal/parcelpal/internal/instrumentation"
	"github.com/parcelpal/parcelpal/internal/skill"
	"github.com/parcelpal/parcelpal/internal/store"
)

// TokenExchanger is the slice of the OAuth helper the callback uses.
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (*google.TokenSet, error)
}

// ServerContext bundles the dependencies the HTTP handlers share.
type ServerContext struct {
	Orchestrator *skill.Orchestrator
	Links        store.MailLinkStore
	OAuth        TokenExchanger

	Logger   *slog.Logger
	Provider *instrumentation.Provider

	shutdown atomic.Bool
}

// NewServerContext creates a server context. A nil logger falls back to the
// default slog logger.
func NewServerContext(orchestrator *skill.Orchestrator, links store.MailLinkStore, oauth TokenExchanger, logger *slog.Logger, provider *instrumentation.Provider) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerContext{
		Orchestrator: orchestrator,
		Links:        links,
		OAuth:        oauth,
		Logger:       logger,
		Provider:     provider,
	}
}

// SetShutdown marks the context as shutting down; readiness probes start
// failing so the load balancer drains traffic before the listener closes.
func (sc *ServerContext) SetShutdown() {
	sc.shutdown.Store(true)
}

// IsShutdown reports whether shutdown has begun.
func (sc *ServerContext) IsShutdown() bool {
	return sc.shutdown.Load()
}

// Metrics returns the metrics recorder, never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.Provider == nil {
		return &instrumentation.Metrics{}
	}
	return sc.Provider.Metrics()
}
