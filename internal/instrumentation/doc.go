// Package instrumentation provides OpenTelemetry metrics and tracing for the
// skill backend.
//
// The Provider wires a meter provider (Prometheus, OTLP, or stdout exporter)
// and a tracer provider (OTLP, stdout, or none), both configured from the
// environment. Metrics covers the domain signals that matter operationally:
// intent invocations, mailbox and tracking API calls, SMS sends, and OAuth
// token refreshes. The AuditLogger records account-linking events with
// configurable PII handling.
package instrumentation
