package tracker

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// CarrierFedEx is the carrier label stamped on results and metrics.
const CarrierFedEx = "FEDEX"

// TrackingNumberMaxLength bounds caller input. Door tag identifiers are the
// longest values the carrier accepts for lookups.
const TrackingNumberMaxLength = 40

// Messages surfaced to API clients when a carrier exchange fails. The body of
// the reply never leaks upstream error detail.
const (
	MsgCarrierUnavailable = "Can't get info from FedEx"
	MsgInvalidResponse    = "Invalid response from FedEx"
)

// TrackEvent is one scan in a shipment's movement history.
type TrackEvent struct {
	OccurredAt  time.Time `json:"occurredAt"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

// TrackingResult is the protocol-agnostic shape both carrier integrations
// normalize into. Raw carries the untouched carrier payload for clients that
// want the native representation.
type TrackingResult struct {
	TrackingNumber    string          `json:"trackingNumber"`
	Carrier           string          `json:"carrier"`
	StatusCode        string          `json:"statusCode,omitempty"`
	Status            string          `json:"status"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	Events            []TrackEvent    `json:"events"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// Provider abstracts a carrier tracking integration. Implementations perform
// exactly one lookup per call: no retry loops, no background refresh.
type Provider interface {
	Track(ctx context.Context, trackingNumber string) (TrackingResult, error)
}

// formatLocation renders an address fragment the same way for every
// protocol so normalized results stay comparable.
func formatLocation(city, state, postal, country string) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{city, state, postal, country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// parseCarrierTime accepts the timestamp layouts the carrier emits. Zone-less
// values are interpreted as UTC.
func parseCarrierTime(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
