// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase and
// PII-safe helpers for logging user identifiers: emails and phone numbers
// are hashed before they reach a log line, and tokens are reduced to a
// length indicator.
package logging
