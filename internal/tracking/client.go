package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the carrier-tracking service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a tracking client for the given service base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// trackingInfo is the wire shape of a lookup response.
type trackingInfo struct {
	CarrierStatus          string `json:"narvar_status"`
	ShipDate               string `json:"ship_date"`
	EstimatedDeliveryBegin string `json:"estimated_delivery_date_begin"`
	EstimatedDeliveryEnd   string `json:"estimated_delivery_date_end"`
	GuaranteedDeliveryDate string `json:"guaranteed_delivery_date"`
	LastStatusDate         string `json:"last_status_date"`
	TrackDetail            []struct {
		Event      string `json:"event"`
		EventDate  string `json:"event_date"`
		EventCity  string `json:"event_city"`
		EventState string `json:"event_state"`
	} `json:"TrackDetail"`
}

// Lookup fetches the current status of one shipment.
func (c *Client) Lookup(ctx context.Context, carrier, trackingNumber string) (*CarrierStatus, error) {
	u := fmt.Sprintf("%s/trackinginfo/%s?tracking_numbers=%s",
		c.baseURL, url.PathEscape(carrier), url.QueryEscape(trackingNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TrackingError{Op: "lookup", Carrier: carrier, TrackingNumber: trackingNumber, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TrackingError{Op: "lookup", Carrier: carrier, TrackingNumber: trackingNumber, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TrackingError{
			Op:             "lookup",
			Carrier:        carrier,
			TrackingNumber: trackingNumber,
			Err:            fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var info trackingInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &TrackingError{Op: "decode", Carrier: carrier, TrackingNumber: trackingNumber, Err: err}
	}

	status := &CarrierStatus{
		TrackingNumber:         trackingNumber,
		Status:                 ParseStatus(info.CarrierStatus),
		ShipDate:               info.ShipDate,
		EstimatedDeliveryStart: info.EstimatedDeliveryBegin,
		EstimatedDeliveryEnd:   info.EstimatedDeliveryEnd,
		GuaranteedDeliveryDate: info.GuaranteedDeliveryDate,
		LastEventDate:          info.LastStatusDate,
	}
	for _, d := range info.TrackDetail {
		status.Events = append(status.Events, Event{
			Description: d.Event,
			City:        d.EventCity,
			State:       d.EventState,
			Date:        d.EventDate,
		})
	}
	return status, nil
}
