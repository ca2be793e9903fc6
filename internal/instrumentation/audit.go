package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/parcelpal/parcelpal/internal/logging"
)

// LinkEvent captures one account-linking state transition for audit logging.
//
// # Privacy Considerations
//
// Phone and Email are PII. By default the audit logger records only hashed
// identifiers; full values appear only when IncludePII is enabled, which
// requires the audit stream to live in access-controlled storage.
type LinkEvent struct {
	// Voice-platform user id
	UserID string

	// Link identifiers
	Phone string
	Email string

	// Action taken by the resolver (prompt_provider, prompt_phone,
	// link_sms_sent, proceed, ...)
	Action string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
}

// NewLinkEvent creates a new LinkEvent with timing started.
// Call Complete() when the resolution finishes.
func NewLinkEvent(userID string) *LinkEvent {
	return &LinkEvent{
		UserID:    userID,
		StartTime: time.Now(),
	}
}

// WithPhone sets the phone number involved in the transition.
func (e *LinkEvent) WithPhone(phone string) *LinkEvent {
	e.Phone = phone
	return e
}

// WithEmail sets the linked email address.
func (e *LinkEvent) WithEmail(email string) *LinkEvent {
	e.Email = email
	return e
}

// WithAction sets the resolver action taken.
func (e *LinkEvent) WithAction(action string) *LinkEvent {
	e.Action = action
	return e
}

// WithSpanContext extracts trace context from the current span.
func (e *LinkEvent) WithSpanContext(ctx context.Context) *LinkEvent {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		e.TraceID = span.SpanContext().TraceID().String()
	}
	return e
}

// Complete marks the event as finished and calculates duration.
func (e *LinkEvent) Complete(success bool, err error) *LinkEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = success
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// attrs returns slog attributes for the event. When includePII is false,
// identifiers are hashed before they reach the log line.
func (e *LinkEvent) attrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", e.Action),
		slog.Duration("duration", e.Duration),
		slog.Bool("success", e.Success),
	}

	if includePII {
		attrs = append(attrs, slog.String("user", e.UserID))
		if e.Phone != "" {
			attrs = append(attrs, slog.String("phone", e.Phone))
		}
		if e.Email != "" {
			attrs = append(attrs, slog.String("email", e.Email))
		}
	} else {
		attrs = append(attrs, slog.String("user_hash", logging.AnonymizeEmail(e.UserID)))
		if e.Phone != "" {
			attrs = append(attrs, slog.String("phone_hash", logging.AnonymizePhone(e.Phone)))
		}
		if e.Email != "" {
			attrs = append(attrs, slog.String("user_domain", logging.ExtractDomain(e.Email)))
		}
	}

	if e.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.TraceID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for account-linking events.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogLinkEvent logs an account-linking state transition.
func (al *AuditLogger) LogLinkEvent(e *LinkEvent) {
	if al == nil || !al.enabled {
		return
	}

	attrs := e.attrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if e.Success {
		al.logger.Info("link_transition", args...)
	} else {
		al.logger.Warn("link_transition_failed", args...)
	}
}
