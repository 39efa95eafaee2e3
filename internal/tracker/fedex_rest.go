package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-tracker/internal/common"
	"github.com/noah-isme/backend-tracker/internal/obs"
)

// RESTProviderConfig configures the REST carrier integration.
type RESTProviderConfig struct {
	Credentials RESTCredentials
	Timeout     time.Duration
	// CacheToken keeps the bearer token between lookups and refreshes it
	// once when the carrier answers 401. Off means every lookup performs
	// its own token exchange.
	CacheToken bool
}

// RESTProvider implements Provider against the FedEx Track API: an OAuth2
// client-credentials token exchange followed by an authenticated JSON query.
type RESTProvider struct {
	client     *resty.Client
	creds      RESTCredentials
	cacheToken bool

	mu           sync.RWMutex
	bearer       string
	bearerExpiry time.Time
}

// NewRESTProvider builds the REST integration with a bounded-timeout client.
func NewRESTProvider(cfg RESTProviderConfig) *RESTProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Credentials.BaseURL, "/")).
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(&http.Transport{}))
	return &RESTProvider{client: cli, creds: cfg.Credentials, cacheToken: cfg.CacheToken}
}

type restTrackRequest struct {
	TrackingInfo         []restTrackingInfo `json:"trackingInfo"`
	IncludeDetailedScans bool               `json:"includeDetailedScans"`
}

type restTrackingInfo struct {
	TrackingNumberInfo restTrackingNumberInfo `json:"trackingNumberInfo"`
}

type restTrackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

type restAddress struct {
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode"`
}

// restOutput is the subset of the carrier reply the normalizer reads. The
// untouched payload still reaches clients through TrackingResult.Raw.
type restOutput struct {
	CompleteTrackResults []struct {
		TrackingNumber string            `json:"trackingNumber"`
		TrackResults   []restTrackResult `json:"trackResults"`
	} `json:"completeTrackResults"`
}

type restTrackResult struct {
	TrackingNumberInfo restTrackingNumberInfo `json:"trackingNumberInfo"`
	LatestStatusDetail struct {
		Code         string      `json:"code"`
		DerivedCode  string      `json:"derivedCode"`
		Description  string      `json:"description"`
		ScanLocation restAddress `json:"scanLocation"`
	} `json:"latestStatusDetail"`
	DateAndTimes []struct {
		Type     string `json:"type"`
		DateTime string `json:"dateTime"`
	} `json:"dateAndTimes"`
	ScanEvents []struct {
		Date             string      `json:"date"`
		EventType        string      `json:"eventType"`
		EventDescription string      `json:"eventDescription"`
		ScanLocation     restAddress `json:"scanLocation"`
	} `json:"scanEvents"`
}

// Track performs one lookup: token exchange, then the tracking query. With
// token caching enabled a cached bearer that comes back 401 is refreshed once
// and the query re-issued a single time.
func (p *RESTProvider) Track(ctx context.Context, trackingNumber string) (TrackingResult, error) {
	token, fromCache, err := p.token(ctx)
	if err != nil {
		return TrackingResult{}, err
	}
	resp, err := p.query(ctx, token, trackingNumber)
	if err != nil {
		return TrackingResult{}, err
	}
	if resp.StatusCode() == http.StatusUnauthorized && fromCache {
		token, err = p.refreshToken(ctx)
		if err != nil {
			return TrackingResult{}, err
		}
		resp, err = p.query(ctx, token, trackingNumber)
		if err != nil {
			return TrackingResult{}, err
		}
	}
	return p.decode(resp, trackingNumber)
}

// token returns a bearer token and whether it came from the cache.
func (p *RESTProvider) token(ctx context.Context) (string, bool, error) {
	if p.cacheToken {
		p.mu.RLock()
		bearer, expiry := p.bearer, p.bearerExpiry
		p.mu.RUnlock()
		if bearer != "" && (expiry.IsZero() || time.Now().Before(expiry)) {
			return bearer, true, nil
		}
	}
	bearer, err := p.authenticate(ctx)
	return bearer, false, err
}

func (p *RESTProvider) authenticate(ctx context.Context) (string, error) {
	result := "error"
	defer func() {
		if obs.CarrierAuthTotal != nil {
			obs.CarrierAuthTotal.WithLabelValues(strings.ToLower(CarrierFedEx), result).Inc()
		}
	}()

	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     p.creds.APIKey,
			"client_secret": p.creds.SecretKey,
		}).
		Post("/oauth/token")
	if err != nil {
		return "", common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("token exchange: %w", err))
	}
	if resp.IsError() {
		return "", common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("token exchange status %d", resp.StatusCode()))
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", common.NewCarrierError(MsgInvalidResponse, fmt.Errorf("decode token response: %w", err))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", common.NewCarrierError(MsgInvalidResponse, errors.New("token response missing access_token"))
	}
	if p.cacheToken {
		p.storeToken(payload.AccessToken, payload.ExpiresIn)
	}
	result = "success"
	return payload.AccessToken, nil
}

func (p *RESTProvider) storeToken(bearer string, expiresInSec int64) {
	expiry := time.Time{}
	if expiresInSec > 0 {
		expiry = time.Now().Add(time.Duration(expiresInSec)*time.Second - 30*time.Second)
	}
	p.mu.Lock()
	p.bearer = bearer
	p.bearerExpiry = expiry
	p.mu.Unlock()
}

func (p *RESTProvider) refreshToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.bearer = ""
	p.bearerExpiry = time.Time{}
	p.mu.Unlock()
	return p.authenticate(ctx)
}

func (p *RESTProvider) query(ctx context.Context, token, trackingNumber string) (*resty.Response, error) {
	body := restTrackRequest{
		TrackingInfo: []restTrackingInfo{
			{TrackingNumberInfo: restTrackingNumberInfo{TrackingNumber: trackingNumber}},
		},
		IncludeDetailedScans: true,
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+token).
		SetBody(body).
		Post("/track/v1/trackingnumbers")
	if err != nil {
		return nil, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("track query: %w", err))
	}
	return resp, nil
}

func (p *RESTProvider) decode(resp *resty.Response, requested string) (TrackingResult, error) {
	if resp.IsError() {
		return TrackingResult{}, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("track query status %d", resp.StatusCode()))
	}
	var payload struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, fmt.Errorf("decode track response: %w", err))
	}
	if len(payload.Output) == 0 || string(payload.Output) == "null" {
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, errors.New("track response missing output"))
	}
	return normalizeRESTOutput(requested, payload.Output)
}

func normalizeRESTOutput(requested string, output json.RawMessage) (TrackingResult, error) {
	var parsed restOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, fmt.Errorf("decode track output: %w", err))
	}

	result := TrackingResult{
		TrackingNumber: requested,
		Carrier:        CarrierFedEx,
		Events:         []TrackEvent{},
		Raw:            output,
	}
	if len(parsed.CompleteTrackResults) == 0 || len(parsed.CompleteTrackResults[0].TrackResults) == 0 {
		return result, nil
	}

	first := parsed.CompleteTrackResults[0]
	if tn := strings.TrimSpace(first.TrackingNumber); tn != "" {
		result.TrackingNumber = tn
	}
	tr := first.TrackResults[0]
	if tn := strings.TrimSpace(tr.TrackingNumberInfo.TrackingNumber); tn != "" {
		result.TrackingNumber = tn
	}
	result.StatusCode = strings.TrimSpace(tr.LatestStatusDetail.Code)
	result.Status = strings.TrimSpace(tr.LatestStatusDetail.Description)
	for _, dt := range tr.DateAndTimes {
		if strings.EqualFold(strings.TrimSpace(dt.Type), "ESTIMATED_DELIVERY") {
			if ts, ok := parseCarrierTime(dt.DateTime); ok {
				estimated := ts
				result.EstimatedDelivery = &estimated
			}
			break
		}
	}
	for _, ev := range tr.ScanEvents {
		event := TrackEvent{
			Code:        strings.TrimSpace(ev.EventType),
			Description: strings.TrimSpace(ev.EventDescription),
			Location:    formatLocation(ev.ScanLocation.City, ev.ScanLocation.StateOrProvinceCode, ev.ScanLocation.PostalCode, ev.ScanLocation.CountryCode),
		}
		if ts, ok := parseCarrierTime(ev.Date); ok {
			event.OccurredAt = ts
		}
		result.Events = append(result.Events, event)
	}
	return result, nil
}
