package tracker

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-tracker/internal/common"
)

// Handler exposes the tracking lookup endpoint.
type Handler struct {
	Svc *Service
}

// Track handles GET /api/tracker.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "tracker service not configured")
		return
	}
	result, err := h.Svc.Track(r.Context(), r.URL.Query().Get("tracking_number"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		common.JSONError(w, status, message)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "internal error")
}
