package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyIntent    = "intent"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyPhoneHash = "phone_hash"
	KeyCarrier   = "carrier"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Setup configures the default slog logger with a text handler on stderr.
// Debug enables debug-level output.
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithIntent returns a logger with the intent attribute set.
func WithIntent(logger *slog.Logger, intent string) *slog.Logger {
	return logger.With(slog.String(KeyIntent, intent))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Intent returns a slog attribute for the intent name.
func Intent(intent string) slog.Attr {
	return slog.String(KeyIntent, intent)
}

// Service returns a slog attribute for the collaborator service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Carrier returns a slog attribute for the shipping carrier name.
func Carrier(carrier string) slog.Attr {
	return slog.String(KeyCarrier, carrier)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// anonymize returns a short stable hash of an identifier for log correlation
// without exposing PII.
func anonymize(prefix, value string) string {
	if value == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(value))
	return prefix + ":" + hex.EncodeToString(hash[:8])
}

// AnonymizeEmail returns a hashed representation of an email address.
func AnonymizeEmail(email string) string {
	return anonymize("user", email)
}

// AnonymizePhone returns a hashed representation of a phone number.
func AnonymizePhone(phone string) string {
	return anonymize("phone", phone)
}

// UserHash returns a slog attribute with the anonymized platform user id.
func UserHash(userID string) slog.Attr {
	return slog.String(KeyUserHash, anonymize("user", userID))
}

// PhoneHash returns a slog attribute with the anonymized phone number.
func PhoneHash(phone string) slog.Attr {
	return slog.String(KeyPhoneHash, AnonymizePhone(phone))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain extracts the domain part from an email address. Useful for
// lower-cardinality logging where the full email would create too many
// unique values.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for the email domain.
func Domain(email string) slog.Attr {
	return slog.String("user_domain", ExtractDomain(email))
}
