package notify

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/shared"
)

// Handler delivers queued notifications to the browser.
type Handler struct {
	queue  *Queue
	logger *slog.Logger
}

// NewHandler constructs the notification handler.
func NewHandler(queue *Queue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{queue: queue, logger: logger}
}

// MountRoutes registers the notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.drain)
}

// drain returns pending notifications once; a second poll sees only newer
// ones.
func (h *Handler) drain(w http.ResponseWriter, r *http.Request) {
	sid := shared.SessionID(r.Context())
	if sid == "" {
		httpx.JSON(w, http.StatusOK, []Notification{})
		return
	}
	items, err := h.queue.Drain(r.Context(), sid)
	if err != nil {
		h.logger.Error("drain notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}
