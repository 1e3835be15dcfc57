package numbering

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-clinic/meridian/internal/platform/httpx"
)

// Handler exposes the read-only numbering endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers numbering routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/preview", h.preview)
}

// preview returns the next number for each series without consuming one,
// so a form can show "what number would be assigned" while it is open.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	at := parseDateParam(r.URL.Query().Get("date"))

	result, err := h.service.PreviewNext(r.Context(), at)
	if err != nil {
		h.logger.Error("preview numbers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, result)
}

// parseDateParam accepts YYYY-MM-DD or a full RFC3339 timestamp. Preview
// is advisory, so an unparseable value falls back to now instead of
// failing the request.
func parseDateParam(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now()
}
