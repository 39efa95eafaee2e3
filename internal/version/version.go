package version

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-tracker/internal/common"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/noah-isme/backend-tracker/internal/version.Version=1.2.3"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Resolve returns the effective version string. A non-empty override (the
// APP_VERSION setting) wins over the compiled-in value.
func Resolve(override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return Version
}

// Handler serves the version endpoint.
type Handler struct {
	AppVersion string
}

// Get handles GET /api/version.
func (h Handler) Get(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{"version": Resolve(h.AppVersion)})
}
