package export

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/shared"
)

// Handler serves asynchronous export results to the session that requested
// them.
type Handler struct {
	results *Results
	logger  *slog.Logger
}

// NewHandler constructs the export result handler.
func NewHandler(results *Results, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{results: results, logger: logger}
}

// MountRoutes registers the result routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.get)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner := shared.SessionID(r.Context())
	if owner == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	res, err := h.results.Get(r.Context(), chi.URLParam(r, "id"), owner)
	if errors.Is(err, ErrResultNotFound) {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	}
	if err != nil {
		h.logger.Error("load export result", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	switch res.Status {
	case StatusDone:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+res.ID+`.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
		_, _ = w.Write(res.PDF)
	case StatusFailed:
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", res.Error)
	default:
		httpx.JSON(w, http.StatusAccepted, res)
	}
}
