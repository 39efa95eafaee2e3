package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
//
// Carrier settings are read from sandbox-suffixed variables unless
// PRODUCTION is set, in which case the production names (same names
// without the SANDBOX fragment) are used instead.
type Config struct {
	AppEnv             string
	Port               string
	Production         bool
	AppVersion         string
	CORSAllowedOrigins []string

	// Carrier protocol selection: REST unless UseSOAP is set.
	UseSOAP bool

	RESTBaseURL    string
	RESTAPIKey     string
	RESTSecretKey  string
	RESTCacheToken bool

	SOAPEndpointURL         string
	SOAPParentKey           string
	SOAPParentPassword      string
	SOAPUserKey             string
	SOAPUserPassword        string
	SOAPAccountNumber       string
	SOAPMeterNumber         string
	SOAPVersionMajor        int
	SOAPVersionIntermediate int
	SOAPVersionMinor        int

	CarrierTimeout time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	production := parseBool(k.String("PRODUCTION"))

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		Production:         production,
		AppVersion:         strings.TrimSpace(k.String("APP_VERSION")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		UseSOAP: parseBool(k.String("FEDEX_TRACKING_USE_SOAP")),

		RESTBaseURL:    valueOrDefault(modal(k, production, "FEDEX_URL", "FEDEX_SANDBOX_URL"), defaultRESTBaseURL(production)),
		RESTAPIKey:     modal(k, production, "FEDEX_TRACKING_API_KEY", "FEDEX_TRACKING_SANDBOX_API_KEY"),
		RESTSecretKey:  modal(k, production, "FEDEX_TRACKING_SECRET_KEY", "FEDEX_TRACKING_SANDBOX_SECRET_KEY"),
		RESTCacheToken: parseBool(k.String("FEDEX_TRACKING_REST_CACHE_TOKEN")),

		SOAPEndpointURL:         valueOrDefault(modal(k, production, "FEDEX_TRACKING_SOAP_URL", "FEDEX_TRACKING_SOAP_SANDBOX_URL"), defaultSOAPEndpointURL(production)),
		SOAPParentKey:           modal(k, production, "FEDEX_TRACKING_SOAP_PARENT_KEY", "FEDEX_TRACKING_SOAP_SANDBOX_PARENT_KEY"),
		SOAPParentPassword:      modal(k, production, "FEDEX_TRACKING_SOAP_PARENT_PASSWORD", "FEDEX_TRACKING_SOAP_SANDBOX_PARENT_PASSWORD"),
		SOAPUserKey:             modal(k, production, "FEDEX_TRACKING_SOAP_USER_KEY", "FEDEX_TRACKING_SOAP_SANDBOX_USER_KEY"),
		SOAPUserPassword:        modal(k, production, "FEDEX_TRACKING_SOAP_USER_PASSWORD", "FEDEX_TRACKING_SOAP_SANDBOX_USER_PASSWORD"),
		SOAPAccountNumber:       modal(k, production, "FEDEX_TRACKING_SOAP_CLIENT_ACCOUNT", "FEDEX_TRACKING_SOAP_SANDBOX_CLIENT_ACCOUNT"),
		SOAPMeterNumber:         modal(k, production, "FEDEX_TRACKING_SOAP_CLIENT_METER", "FEDEX_TRACKING_SOAP_SANDBOX_CLIENT_METER"),
		SOAPVersionMajor:        parseInt(k.String("FEDEX_TRACKING_SOAP_VERSION_MAJOR"), 10),
		SOAPVersionIntermediate: parseInt(k.String("FEDEX_TRACKING_SOAP_VERSION_MIDDLE"), 0),
		SOAPVersionMinor:        parseInt(k.String("FEDEX_TRACKING_SOAP_VERSION_MINOR"), 0),

		CarrierTimeout: parseDuration(k.String("FEDEX_TRACKING_HTTP_TIMEOUT"), "10s"),

		HTTPReadTimeout:  parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
		HTTPWriteTimeout: parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "30s"),
		HTTPIdleTimeout:  parseDuration(k.String("HTTP_IDLE_TIMEOUT"), "60s"),
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// modal returns the production or sandbox variable depending on the mode.
func modal(k *koanf.Koanf, production bool, productionKey, sandboxKey string) string {
	if production {
		return strings.TrimSpace(k.String(productionKey))
	}
	return strings.TrimSpace(k.String(sandboxKey))
}

func defaultRESTBaseURL(production bool) string {
	if production {
		return "https://apis.fedex.com"
	}
	return "https://apis-sandbox.fedex.com"
}

func defaultSOAPEndpointURL(production bool) string {
	if production {
		return "https://ws.fedex.com/web-services"
	}
	return "https://wsbeta.fedex.com/web-services"
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
