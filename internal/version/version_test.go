package version_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tracker/internal/version"
)

func TestResolvePrefersOverride(t *testing.T) {
	require.Equal(t, "2.4.1", version.Resolve("2.4.1"))
	require.Equal(t, version.Version, version.Resolve("  "))
}

func TestVersionEndpoint(t *testing.T) {
	handler := version.Handler{AppVersion: "1.0.7"}
	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "1.0.7", body["version"])
}
