package tracker_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tracker/internal/common"
	"github.com/noah-isme/backend-tracker/internal/tracker"
)

func doTrack(t *testing.T, provider tracker.Provider, target string) *httptest.ResponseRecorder {
	t.Helper()
	handler := &tracker.Handler{Svc: &tracker.Service{Provider: provider}}
	rr := httptest.NewRecorder()
	handler.Track(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body common.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Message
}

func TestTrackEndpointSuccess(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{result: tracker.TrackingResult{
		Carrier:    "FEDEX",
		StatusCode: "IT",
		Status:     "In transit",
		Events:     []tracker.TrackEvent{},
	}}
	rr := doTrack(t, provider, "/api/tracker?tracking_number=449044304137821")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var result tracker.TrackingResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, "449044304137821", result.TrackingNumber)
	require.Equal(t, "In transit", result.Status)
}

func TestTrackEndpointMissingNumber(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	rr := doTrack(t, provider, "/api/tracker")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotEmpty(t, errorMessage(t, rr))
	require.Equal(t, 0, provider.callCount(), "no outbound call without a tracking number")
}

func TestTrackEndpointCarrierFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{err: common.NewCarrierError(tracker.MsgCarrierUnavailable, nil)}
	rr := doTrack(t, provider, "/api/tracker?tracking_number=123")

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, tracker.MsgCarrierUnavailable, errorMessage(t, rr))
}

func TestTrackEndpointConfigurationFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{err: common.NewConfigurationError("missing or invalid FedEx settings", nil)}
	rr := doTrack(t, provider, "/api/tracker?tracking_number=123")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestTrackEndpointUnexpectedFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{err: errors.New("kaboom")}
	rr := doTrack(t, provider, "/api/tracker?tracking_number=123")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal error", errorMessage(t, rr), "internal detail never reaches the client")
}

func TestTrackEndpointTimeoutAnswersWithErrorJSON(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	provider := tracker.NewRESTProvider(tracker.RESTProviderConfig{
		Credentials: tracker.RESTCredentials{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"},
		Timeout:     100 * time.Millisecond,
	})

	start := time.Now()
	rr := doTrack(t, provider, "/api/tracker?tracking_number=123")
	elapsed := time.Since(start)

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.NotEmpty(t, errorMessage(t, rr))
	require.Less(t, elapsed, 5*time.Second, "request must not hang on a stalled carrier")
}
