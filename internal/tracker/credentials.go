package tracker

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-tracker/internal/common"
)

// Mode selects which carrier protocol the service talks.
type Mode string

const (
	ModeREST Mode = "rest"
	ModeSOAP Mode = "soap"
)

// CredentialConfig carries the raw carrier settings prior to resolution.
// Only the fields for the selected mode are inspected; leftover settings
// for the other protocol are ignored.
type CredentialConfig struct {
	UseSOAP    bool
	Production bool

	RESTBaseURL   string
	RESTAPIKey    string
	RESTSecretKey string

	SOAPEndpointURL    string
	SOAPParentKey      string
	SOAPParentPassword string
	SOAPUserKey        string
	SOAPUserPassword   string
	SOAPAccountNumber  string
	SOAPMeterNumber    string

	SOAPVersionMajor        int
	SOAPVersionIntermediate int
	SOAPVersionMinor        int
}

// RESTCredentials authenticate the OAuth2 client credentials flow.
type RESTCredentials struct {
	BaseURL   string `validate:"required,url"`
	APIKey    string `validate:"required"`
	SecretKey string `validate:"required"`
}

// SOAPCredentials carry the six identifiers embedded in every envelope plus
// the endpoint and service version.
type SOAPCredentials struct {
	EndpointURL    string `validate:"required,url"`
	ParentKey      string `validate:"required"`
	ParentPassword string `validate:"required"`
	UserKey        string `validate:"required"`
	UserPassword   string `validate:"required"`
	AccountNumber  string `validate:"required"`
	MeterNumber    string `validate:"required"`
	Version        ServiceVersion
}

// ServiceVersion pins the SOAP service contract version.
type ServiceVersion struct {
	Major        int
	Intermediate int
	Minor        int
}

// Credentials is the resolved bundle for the active mode.
type Credentials struct {
	Mode Mode
	REST RESTCredentials
	SOAP SOAPCredentials
}

var validate = validator.New()

// Env var names per credential field, [production, sandbox]. Error messages
// name the variable operators have to set, never the value.
var (
	restEnvNames = map[string][2]string{
		"BaseURL":   {"FEDEX_URL", "FEDEX_SANDBOX_URL"},
		"APIKey":    {"FEDEX_TRACKING_API_KEY", "FEDEX_TRACKING_SANDBOX_API_KEY"},
		"SecretKey": {"FEDEX_TRACKING_SECRET_KEY", "FEDEX_TRACKING_SANDBOX_SECRET_KEY"},
	}
	soapEnvNames = map[string][2]string{
		"EndpointURL":    {"FEDEX_TRACKING_SOAP_URL", "FEDEX_TRACKING_SOAP_SANDBOX_URL"},
		"ParentKey":      {"FEDEX_TRACKING_SOAP_PARENT_KEY", "FEDEX_TRACKING_SOAP_SANDBOX_PARENT_KEY"},
		"ParentPassword": {"FEDEX_TRACKING_SOAP_PARENT_PASSWORD", "FEDEX_TRACKING_SOAP_SANDBOX_PARENT_PASSWORD"},
		"UserKey":        {"FEDEX_TRACKING_SOAP_USER_KEY", "FEDEX_TRACKING_SOAP_SANDBOX_USER_KEY"},
		"UserPassword":   {"FEDEX_TRACKING_SOAP_USER_PASSWORD", "FEDEX_TRACKING_SOAP_SANDBOX_USER_PASSWORD"},
		"AccountNumber":  {"FEDEX_TRACKING_SOAP_CLIENT_ACCOUNT", "FEDEX_TRACKING_SOAP_SANDBOX_CLIENT_ACCOUNT"},
		"MeterNumber":    {"FEDEX_TRACKING_SOAP_CLIENT_METER", "FEDEX_TRACKING_SOAP_SANDBOX_CLIENT_METER"},
	}
)

// ResolveCredentials picks and validates the credential bundle for the
// configured mode. It fails with a configuration error naming every missing
// setting before any outbound call can be attempted.
func ResolveCredentials(cfg CredentialConfig) (Credentials, error) {
	if cfg.UseSOAP {
		creds := Credentials{
			Mode: ModeSOAP,
			SOAP: SOAPCredentials{
				EndpointURL:    strings.TrimSpace(cfg.SOAPEndpointURL),
				ParentKey:      strings.TrimSpace(cfg.SOAPParentKey),
				ParentPassword: strings.TrimSpace(cfg.SOAPParentPassword),
				UserKey:        strings.TrimSpace(cfg.SOAPUserKey),
				UserPassword:   strings.TrimSpace(cfg.SOAPUserPassword),
				AccountNumber:  strings.TrimSpace(cfg.SOAPAccountNumber),
				MeterNumber:    strings.TrimSpace(cfg.SOAPMeterNumber),
				Version: ServiceVersion{
					Major:        cfg.SOAPVersionMajor,
					Intermediate: cfg.SOAPVersionIntermediate,
					Minor:        cfg.SOAPVersionMinor,
				},
			},
		}
		if err := validateBundle(creds.SOAP, soapEnvNames, cfg.Production); err != nil {
			return Credentials{}, err
		}
		return creds, nil
	}

	creds := Credentials{
		Mode: ModeREST,
		REST: RESTCredentials{
			BaseURL:   strings.TrimSpace(cfg.RESTBaseURL),
			APIKey:    strings.TrimSpace(cfg.RESTAPIKey),
			SecretKey: strings.TrimSpace(cfg.RESTSecretKey),
		},
	}
	if err := validateBundle(creds.REST, restEnvNames, cfg.Production); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func validateBundle(bundle any, envNames map[string][2]string, production bool) error {
	err := validate.Struct(bundle)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.NewConfigurationError("invalid carrier credentials", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names, ok := envNames[fe.Field()]
		if !ok {
			missing = append(missing, fe.Field())
			continue
		}
		if production {
			missing = append(missing, names[0])
		} else {
			missing = append(missing, names[1])
		}
	}
	return common.NewConfigurationError("missing or invalid FedEx settings: "+strings.Join(missing, ", "), nil)
}
