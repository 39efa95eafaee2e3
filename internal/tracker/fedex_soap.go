package tracker

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-tracker/internal/common"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	trackServiceNS = "http://fedex.com/ws/track/v10"

	soapServiceID         = "trck"
	soapPackageIdentifier = "TRACKING_NUMBER_OR_DOORTAG"
	soapProcessingOption  = "INCLUDE_DETAILED_SCANS"
	soapSeveritySuccess   = "SUCCESS"
)

// SOAPProviderConfig configures the SOAP carrier integration.
type SOAPProviderConfig struct {
	Credentials SOAPCredentials
	Timeout     time.Duration
}

// SOAPProvider implements Provider against the legacy FedEx Track web
// service. Authentication is not a separate exchange: every envelope carries
// the parent and user credentials plus the account and meter numbers.
type SOAPProvider struct {
	client *resty.Client
	creds  SOAPCredentials
}

// NewSOAPProvider builds the SOAP integration with a bounded-timeout client.
func NewSOAPProvider(cfg SOAPProviderConfig) *SOAPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cli := resty.New().
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(&http.Transport{}))
	return &SOAPProvider{client: cli, creds: cfg.Credentials}
}

// Request envelope. Element names are hand-prefixed because encoding/xml
// does not emit namespace prefixes on its own.
type soapRequestEnvelope struct {
	XMLName xml.Name        `xml:"soapenv:Envelope"`
	SoapNS  string          `xml:"xmlns:soapenv,attr"`
	TrackNS string          `xml:"xmlns:v10,attr"`
	Body    soapRequestBody `xml:"soapenv:Body"`
}

type soapRequestBody struct {
	TrackRequest soapTrackRequest `xml:"v10:TrackRequest"`
}

type soapTrackRequest struct {
	WebAuthenticationDetail soapWebAuthenticationDetail `xml:"v10:WebAuthenticationDetail"`
	ClientDetail            soapClientDetail            `xml:"v10:ClientDetail"`
	TransactionDetail       soapTransactionDetail       `xml:"v10:TransactionDetail"`
	Version                 soapVersionID               `xml:"v10:Version"`
	SelectionDetails        soapSelectionDetails        `xml:"v10:SelectionDetails"`
	ProcessingOptions       []string                    `xml:"v10:ProcessingOptions"`
}

type soapWebAuthenticationDetail struct {
	ParentCredential soapCredential `xml:"v10:ParentCredential"`
	UserCredential   soapCredential `xml:"v10:UserCredential"`
}

type soapCredential struct {
	Key      string `xml:"v10:Key"`
	Password string `xml:"v10:Password"`
}

type soapClientDetail struct {
	AccountNumber string `xml:"v10:AccountNumber"`
	MeterNumber   string `xml:"v10:MeterNumber"`
}

type soapTransactionDetail struct {
	CustomerTransactionID string `xml:"v10:CustomerTransactionId"`
}

type soapVersionID struct {
	ServiceID    string `xml:"v10:ServiceId"`
	Major        int    `xml:"v10:Major"`
	Intermediate int    `xml:"v10:Intermediate"`
	Minor        int    `xml:"v10:Minor"`
}

type soapSelectionDetails struct {
	PackageIdentifier soapPackageID `xml:"v10:PackageIdentifier"`
}

type soapPackageID struct {
	Type  string `xml:"v10:Type"`
	Value string `xml:"v10:Value"`
}

// Reply envelope. Tags carry local names only so the decoder accepts
// whatever prefixes the carrier responds with.
type soapReplyEnvelope struct {
	XMLName xml.Name      `xml:"Envelope"`
	Body    soapReplyBody `xml:"Body"`
}

type soapReplyBody struct {
	Fault      *soapFault     `xml:"Fault"`
	TrackReply soapTrackReply `xml:"TrackReply"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	Reason string `xml:"faultstring"`
}

type soapTrackReply struct {
	HighestSeverity       string                     `xml:"HighestSeverity"`
	Notifications         []soapNotification         `xml:"Notifications"`
	CompletedTrackDetails []soapCompletedTrackDetail `xml:"CompletedTrackDetails"`
}

type soapNotification struct {
	Severity string `xml:"Severity"`
	Source   string `xml:"Source"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

type soapCompletedTrackDetail struct {
	HighestSeverity string            `xml:"HighestSeverity"`
	TrackDetails    []soapTrackDetail `xml:"TrackDetails"`
}

type soapTrackDetail struct {
	Notification               soapNotification `xml:"Notification"`
	TrackingNumber             string           `xml:"TrackingNumber"`
	StatusDetail               soapStatusDetail `xml:"StatusDetail"`
	EstimatedDeliveryTimestamp string           `xml:"EstimatedDeliveryTimestamp"`
	Events                     []soapScanEvent  `xml:"Events"`
}

type soapStatusDetail struct {
	CreationTime string      `xml:"CreationTime"`
	Code         string      `xml:"Code"`
	Description  string      `xml:"Description"`
	Location     soapAddress `xml:"Location"`
}

type soapScanEvent struct {
	Timestamp        string      `xml:"Timestamp"`
	EventType        string      `xml:"EventType"`
	EventDescription string      `xml:"EventDescription"`
	Address          soapAddress `xml:"Address"`
}

type soapAddress struct {
	City                string `xml:"City"`
	StateOrProvinceCode string `xml:"StateOrProvinceCode"`
	PostalCode          string `xml:"PostalCode"`
	CountryCode         string `xml:"CountryCode"`
}

// Track performs one lookup: a single envelope POST carrying credentials and
// the query together.
func (p *SOAPProvider) Track(ctx context.Context, trackingNumber string) (TrackingResult, error) {
	envelope := p.buildEnvelope(trackingNumber, uuid.NewString())
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return TrackingResult{}, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("encode track request: %w", err))
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", "track").
		SetBody(append([]byte(xml.Header), payload...)).
		Post(p.creds.EndpointURL)
	if err != nil {
		return TrackingResult{}, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("track request: %w", err))
	}
	return p.decode(resp, trackingNumber)
}

func (p *SOAPProvider) buildEnvelope(trackingNumber, transactionID string) soapRequestEnvelope {
	return soapRequestEnvelope{
		SoapNS:  soapEnvelopeNS,
		TrackNS: trackServiceNS,
		Body: soapRequestBody{
			TrackRequest: soapTrackRequest{
				WebAuthenticationDetail: soapWebAuthenticationDetail{
					ParentCredential: soapCredential{Key: p.creds.ParentKey, Password: p.creds.ParentPassword},
					UserCredential:   soapCredential{Key: p.creds.UserKey, Password: p.creds.UserPassword},
				},
				ClientDetail: soapClientDetail{
					AccountNumber: p.creds.AccountNumber,
					MeterNumber:   p.creds.MeterNumber,
				},
				TransactionDetail: soapTransactionDetail{CustomerTransactionID: transactionID},
				Version: soapVersionID{
					ServiceID:    soapServiceID,
					Major:        p.creds.Version.Major,
					Intermediate: p.creds.Version.Intermediate,
					Minor:        p.creds.Version.Minor,
				},
				SelectionDetails: soapSelectionDetails{
					PackageIdentifier: soapPackageID{Type: soapPackageIdentifier, Value: trackingNumber},
				},
				ProcessingOptions: []string{soapProcessingOption},
			},
		},
	}
}

func (p *SOAPProvider) decode(resp *resty.Response, requested string) (TrackingResult, error) {
	var envelope soapReplyEnvelope
	if err := xml.Unmarshal(resp.Body(), &envelope); err != nil {
		if resp.IsError() {
			return TrackingResult{}, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("track request status %d", resp.StatusCode()))
		}
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, fmt.Errorf("decode track reply: %w", err))
	}
	if fault := envelope.Body.Fault; fault != nil {
		message := strings.TrimSpace(fault.Reason)
		if message == "" {
			message = MsgCarrierUnavailable
		}
		return TrackingResult{}, common.NewCarrierError(message, fmt.Errorf("soap fault %s", fault.Code))
	}

	reply := envelope.Body.TrackReply
	if reply.HighestSeverity == "" && resp.IsError() {
		return TrackingResult{}, common.NewCarrierError(MsgCarrierUnavailable, fmt.Errorf("track request status %d", resp.StatusCode()))
	}
	if !strings.EqualFold(strings.TrimSpace(reply.HighestSeverity), soapSeveritySuccess) {
		message := MsgCarrierUnavailable
		if len(reply.Notifications) > 0 && strings.TrimSpace(reply.Notifications[0].Message) != "" {
			message = strings.TrimSpace(reply.Notifications[0].Message)
		}
		return TrackingResult{}, common.NewCarrierError(message, nil)
	}
	if len(reply.CompletedTrackDetails) == 0 || len(reply.CompletedTrackDetails[0].TrackDetails) == 0 {
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, errors.New("track reply missing track details"))
	}
	return normalizeSOAPReply(requested, reply.CompletedTrackDetails[0])
}

func normalizeSOAPReply(requested string, completed soapCompletedTrackDetail) (TrackingResult, error) {
	detail := completed.TrackDetails[0]

	raw, err := json.Marshal(struct {
		TrackDetails []soapTrackDetail
	}{completed.TrackDetails})
	if err != nil {
		return TrackingResult{}, common.NewCarrierError(MsgInvalidResponse, fmt.Errorf("encode track details: %w", err))
	}

	result := TrackingResult{
		TrackingNumber: requested,
		Carrier:        CarrierFedEx,
		StatusCode:     strings.TrimSpace(detail.StatusDetail.Code),
		Status:         strings.TrimSpace(detail.StatusDetail.Description),
		Events:         []TrackEvent{},
		Raw:            raw,
	}
	if tn := strings.TrimSpace(detail.TrackingNumber); tn != "" {
		result.TrackingNumber = tn
	}
	if ts, ok := parseCarrierTime(detail.EstimatedDeliveryTimestamp); ok {
		estimated := ts
		result.EstimatedDelivery = &estimated
	}
	for _, ev := range detail.Events {
		event := TrackEvent{
			Code:        strings.TrimSpace(ev.EventType),
			Description: strings.TrimSpace(ev.EventDescription),
			Location:    formatLocation(ev.Address.City, ev.Address.StateOrProvinceCode, ev.Address.PostalCode, ev.Address.CountryCode),
		}
		if ts, ok := parseCarrierTime(ev.Timestamp); ok {
			event.OccurredAt = ts
		}
		result.Events = append(result.Events, event)
	}
	return result, nil
}
