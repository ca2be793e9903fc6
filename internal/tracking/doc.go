// Package tracking queries the carrier-tracking service for the current
// status of a shipment. Statuses are fetched fresh on every request; carrier
// state changes too often for a cached delivery date to be trustworthy.
package tracking
