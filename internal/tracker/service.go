package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-tracker/internal/common"
	"github.com/noah-isme/backend-tracker/internal/obs"
)

// Service coordinates tracking lookups against the configured carrier
// provider and owns caller input validation.
type Service struct {
	Provider Provider
}

// Track validates the tracking number and delegates the lookup to the
// active provider.
func (s *Service) Track(ctx context.Context, trackingNumber string) (TrackingResult, error) {
	var zero TrackingResult
	if s == nil || s.Provider == nil {
		return zero, errors.New("tracker service not configured")
	}
	trimmed := strings.TrimSpace(trackingNumber)
	if err := validate.Var(trimmed, "required"); err != nil {
		return zero, common.NewValidationError("tracking_number query parameter is required")
	}
	if err := validate.Var(trimmed, fmt.Sprintf("max=%d", TrackingNumberMaxLength)); err != nil {
		return zero, common.NewValidationError(fmt.Sprintf("tracking_number must be at most %d characters", TrackingNumberMaxLength))
	}

	ctx, span := otel.Tracer("tracker.Service").Start(ctx, "TrackerService.Track")
	defer span.End()

	start := time.Now()
	carrier := strings.ToLower(CarrierFedEx)
	protocol := protocolName(s.Provider)
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("carrier.name", carrier),
			attribute.String("carrier.protocol", protocol),
			attribute.Float64("carrier.lookup.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("carrier.lookup.result", result),
		)
		if obs.CarrierLookupTotal != nil {
			obs.CarrierLookupTotal.WithLabelValues(carrier, protocol, result).Inc()
		}
		if obs.CarrierLookupDuration != nil {
			obs.CarrierLookupDuration.WithLabelValues(carrier, protocol).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	res, err := s.Provider.Track(ctx, trimmed)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}
	result = "success"
	return res, nil
}

func protocolName(p Provider) string {
	switch p.(type) {
	case *RESTProvider:
		return string(ModeREST)
	case *SOAPProvider:
		return string(ModeSOAP)
	default:
		return "unknown"
	}
}
