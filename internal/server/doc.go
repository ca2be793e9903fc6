// Package server hosts the HTTP surfaces of the skill backend:
//
//   - the webhook endpoint the voice platform posts request envelopes to
//   - the OAuth callback Google redirects the user to after consent
//   - health endpoints for liveness and readiness probes
//   - a dedicated metrics server for Prometheus scraping
//
// The webhook and callback share one listener; metrics live on their own
// port so operational data never rides on user-facing traffic.
package server
