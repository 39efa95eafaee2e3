package tracker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/noah-isme/backend-tracker/internal/tracker"
)

type stubProvider struct {
	mu     sync.Mutex
	calls  int
	result tracker.TrackingResult
	err    error
}

func (s *stubProvider) Track(ctx context.Context, trackingNumber string) (tracker.TrackingResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return tracker.TrackingResult{}, s.err
	}
	res := s.result
	if res.TrackingNumber == "" {
		res.TrackingNumber = trackingNumber
	}
	return res, s.err
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fedexRESTStub mimics the carrier's OAuth token endpoint and tracking query
// endpoint, counting calls to each.
type fedexRESTStub struct {
	mu         sync.Mutex
	tokenCalls int
	trackCalls int

	// token the server currently accepts; rotated by invalidate.
	activeToken string
	trackBody   string

	srv *httptest.Server
}

func newFedexRESTStub(t *testing.T, trackBody string) *fedexRESTStub {
	t.Helper()
	stub := &fedexRESTStub{activeToken: "token-1", trackBody: trackBody}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostFormValue("grant_type") != "client_credentials" ||
			r.PostFormValue("client_id") == "" || r.PostFormValue("client_secret") == "" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		stub.mu.Lock()
		stub.tokenCalls++
		token := stub.activeToken
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + token + `","expires_in":3600}`))
	})
	mux.HandleFunc("/track/v1/trackingnumbers", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.trackCalls++
		accepted := "Bearer " + stub.activeToken
		body := stub.trackBody
		stub.mu.Unlock()
		if r.Header.Get("Authorization") != accepted {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

// invalidate rotates the accepted token so cached bearers start failing.
func (s *fedexRESTStub) invalidate(next string) {
	s.mu.Lock()
	s.activeToken = next
	s.mu.Unlock()
}

func (s *fedexRESTStub) counts() (token, track int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls, s.trackCalls
}

func (s *fedexRESTStub) provider(cacheToken bool) *tracker.RESTProvider {
	return tracker.NewRESTProvider(tracker.RESTProviderConfig{
		Credentials: tracker.RESTCredentials{
			BaseURL:   s.srv.URL,
			APIKey:    "rest-key",
			SecretKey: "rest-secret",
		},
		CacheToken: cacheToken,
	})
}
