package tracking

import "strings"

// Status is the normalized delivery state of a shipment.
type Status string

const (
	StatusDelivered   Status = "delivered"
	StatusInTransit   Status = "intransit"
	StatusJustShipped Status = "justshipped"
	StatusException   Status = "exception"
	StatusUnknown     Status = "unknown"
)

// ParseStatus normalizes a raw carrier status string. The carrier sends mixed
// case and sometimes the literal string "null"; anything unrecognized maps to
// StatusUnknown.
func ParseStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "delivered":
		return StatusDelivered
	case "intransit":
		return StatusInTransit
	case "justshipped":
		return StatusJustShipped
	case "exception":
		return StatusException
	default:
		return StatusUnknown
	}
}

// Event is one scan in a shipment's movement history.
type Event struct {
	// Description is the carrier's event label (e.g., "DEPARTURE SCAN")
	Description string

	// City where the scan happened
	City string

	// State or region code
	State string

	// Date is the scan timestamp in "YYYY-MM-DD HH:MM:SS" form
	Date string
}

// CarrierStatus is the tracked state of one shipment. Date fields keep the
// carrier's "YYYY-MM-DD HH:MM:SS" string form; empty means the carrier did
// not report that date.
type CarrierStatus struct {
	TrackingNumber string
	Status         Status

	ShipDate               string
	EstimatedDeliveryStart string
	EstimatedDeliveryEnd   string
	GuaranteedDeliveryDate string
	LastEventDate          string

	// Events is the movement history, most recent first.
	Events []Event
}

// ProjectedDeliveryDate picks the best available delivery date: a guaranteed
// date wins over the estimated window's end, which wins over its start.
// Empty when the carrier reported none of the three.
func (s *CarrierStatus) ProjectedDeliveryDate() string {
	switch {
	case s.GuaranteedDeliveryDate != "":
		return s.GuaranteedDeliveryDate
	case s.EstimatedDeliveryEnd != "":
		return s.EstimatedDeliveryEnd
	default:
		return s.EstimatedDeliveryStart
	}
}

// TrackingError represents an error from a carrier lookup.
type TrackingError struct {
	// Op is the operation that failed
	Op string

	// Carrier and TrackingNumber identify the shipment being looked up
	Carrier        string
	TrackingNumber string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *TrackingError) Error() string {
	if e.TrackingNumber != "" {
		return "tracking " + e.Op + " (" + e.Carrier + " " + e.TrackingNumber + "): " + e.Err.Error()
	}
	return "tracking " + e.Op + ": " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface
func (e *TrackingError) Unwrap() error {
	return e.Err
}
