package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CarrierLookupTotal counts tracking lookup outcomes per carrier protocol.
	CarrierLookupTotal *prometheus.CounterVec
	// CarrierLookupDuration records end-to-end carrier lookup latency in milliseconds.
	CarrierLookupDuration *prometheus.HistogramVec
	// CarrierAuthTotal counts carrier token exchange outcomes.
	CarrierAuthTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CarrierLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_lookup_total",
			Help:      "Count of carrier tracking lookup outcomes.",
		}, []string{"carrier", "protocol", "result"})
		CarrierLookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "carrier_lookup_duration_ms",
			Help:      "Latency of carrier tracking lookups in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"carrier", "protocol"})
		CarrierAuthTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_auth_total",
			Help:      "Count of carrier token exchange outcomes.",
		}, []string{"carrier", "result"})

		mustRegisterCollector(reg, CarrierLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CarrierLookupTotal = v
			}
		})
		mustRegisterCollector(reg, CarrierLookupDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CarrierLookupDuration = v
			}
		})
		mustRegisterCollector(reg, CarrierAuthTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CarrierAuthTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
