package tracker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tracker/internal/common"
	"github.com/noah-isme/backend-tracker/internal/tracker"
)

const restTrackBody = `{"output":{"completeTrackResults":[{"trackingNumber":"449044304137821","trackResults":[{` +
	`"trackingNumberInfo":{"trackingNumber":"449044304137821"},` +
	`"latestStatusDetail":{"code":"DL","description":"Delivered","scanLocation":{"city":"MEMPHIS","stateOrProvinceCode":"TN","postalCode":"38116","countryCode":"US"}},` +
	`"dateAndTimes":[{"type":"ESTIMATED_DELIVERY","dateTime":"2024-05-01T12:00:00"}],` +
	`"scanEvents":[` +
	`{"date":"2024-05-01T11:02:00","eventType":"DL","eventDescription":"Delivered","scanLocation":{"city":"MEMPHIS","stateOrProvinceCode":"TN","postalCode":"38116","countryCode":"US"}},` +
	`{"date":"2024-04-28T09:15:00","eventType":"PU","eventDescription":"Picked up","scanLocation":{"city":"AUSTIN","stateOrProvinceCode":"TX","postalCode":"78701","countryCode":"US"}}` +
	`]}]}]}}`

func TestRESTTrackOneTokenExchangeOneQuery(t *testing.T) {
	t.Parallel()

	stub := newFedexRESTStub(t, restTrackBody)
	provider := stub.provider(false)

	result, err := provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)

	token, track := stub.counts()
	require.Equal(t, 1, token, "exactly one token exchange per lookup")
	require.Equal(t, 1, track, "exactly one tracking query per lookup")

	require.Equal(t, "449044304137821", result.TrackingNumber)
	require.Equal(t, "FEDEX", result.Carrier)
	require.Equal(t, "DL", result.StatusCode)
	require.Equal(t, "Delivered", result.Status)
	require.NotNil(t, result.EstimatedDelivery)
	require.Len(t, result.Events, 2)
	require.Equal(t, "Delivered", result.Events[0].Description)
	require.Equal(t, "AUSTIN, TX, 78701, US", result.Events[1].Location)
	require.NotEmpty(t, result.Raw)

	// without caching a second lookup re-authenticates
	_, err = provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)
	token, track = stub.counts()
	require.Equal(t, 2, token)
	require.Equal(t, 2, track)
}

func TestRESTTrackReusesCachedToken(t *testing.T) {
	t.Parallel()

	stub := newFedexRESTStub(t, restTrackBody)
	provider := stub.provider(true)

	_, err := provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)
	_, err = provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)

	token, track := stub.counts()
	require.Equal(t, 1, token, "cached bearer should be reused")
	require.Equal(t, 2, track)
}

func TestRESTTrackRefreshesOnceOn401(t *testing.T) {
	t.Parallel()

	stub := newFedexRESTStub(t, restTrackBody)
	provider := stub.provider(true)

	_, err := provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)

	stub.invalidate("token-2")

	result, err := provider.Track(context.Background(), "449044304137821")
	require.NoError(t, err)
	require.Equal(t, "Delivered", result.Status)

	token, track := stub.counts()
	require.Equal(t, 2, token, "one refresh after the cached token expired")
	require.Equal(t, 3, track, "failed query, then one re-issue")
}

func TestRESTTrackAuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	provider := tracker.NewRESTProvider(tracker.RESTProviderConfig{
		Credentials: tracker.RESTCredentials{BaseURL: srv.URL, APIKey: "k", SecretKey: "s"},
	})
	_, err := provider.Track(context.Background(), "123")

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeCarrier, appErr.Code)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	require.Equal(t, tracker.MsgCarrierUnavailable, appErr.Message)
}

func TestRESTTrackMissingOutput(t *testing.T) {
	t.Parallel()

	stub := newFedexRESTStub(t, `{"errors":[{"code":"TRACKING.TRACKINGNUMBER.NOTFOUND"}]}`)
	provider := stub.provider(false)

	_, err := provider.Track(context.Background(), "123")

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeCarrier, appErr.Code)
	require.Equal(t, tracker.MsgInvalidResponse, appErr.Message)
}

func TestRESTTrackTimeoutIsBounded(t *testing.T) {
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
	_, err := provider.Track(context.Background(), "123")
	elapsed := time.Since(start)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeCarrier, appErr.Code)
	require.Less(t, elapsed, 5*time.Second, "lookup must not hang past the configured timeout")
}

func TestRESTTrackContextCancellation(t *testing.T) {
	t.Parallel()

	stub := newFedexRESTStub(t, restTrackBody)
	provider := stub.provider(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Track(ctx, "123")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeCarrier, appErr.Code)
	require.ErrorIs(t, appErr.Err, context.Canceled)
}
