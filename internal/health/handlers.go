package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// ready gates the readiness endpoint. It starts false and is flipped on by
// main once wiring is complete, then off again when shutdown begins so load
// balancers drain the instance before the listener closes.
var ready atomic.Bool

// SetReady toggles the readiness gate.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness state.
func IsReady() bool {
	return ready.Load()
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct{}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the shutdown gate.
func (h Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Healthcheck serves the legacy load balancer probe: GET answers 200, POST
// answers 201, both with a plain ok body.
func (h Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.Method == http.MethodPost {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_, _ = w.Write([]byte("ok"))
}
