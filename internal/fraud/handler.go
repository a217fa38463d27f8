package fraud

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

const maxEvidenceBody = 1 << 20

// Handler manages fraud case endpoints.
type Handler struct {
	resolve func(*http.Request) (*Service, error)
	list    *screen.Handler[Case]
}

// NewHandler builds Handler instance.
func NewHandler(resolve func(*http.Request) (*Service, error), deps screen.HandlerDeps) *Handler {
	h := &Handler{resolve: resolve}
	h.list = screen.NewHandler(func(r *http.Request) (*screen.Screen[Case], error) {
		svc, err := resolve(r)
		if err != nil {
			return nil, err
		}
		return svc.Screen(), nil
	}, deps)
	return h
}

// MountRoutes registers fraud case routes.
func (h *Handler) MountRoutes(r chi.Router) {
	h.list.MountRoutes(r)
	r.Patch("/{id}/status", h.updateStatus)
	r.Patch("/{id}/notes", h.updateNotes)
	r.Post("/{id}/evidence", h.attachEvidence)
}

func (h *Handler) service(r *http.Request) (*Service, error) {
	if _, err := h.list.Load(r); err != nil {
		return nil, err
	}
	return h.resolve(r)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status Status `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Case], error) {
		return svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	})
}

func (h *Handler) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Case], error) {
		return svc.UpdateNotes(r.Context(), chi.URLParam(r, "id"), req.Notes)
	})
}

func (h *Handler) attachEvidence(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxEvidenceBody))
	if err != nil {
		httpx.RespondError(w, httpx.BadRequest(err.Error()))
		return
	}
	ev, err := DecodeEvidence(data)
	if err != nil {
		httpx.RespondError(w, mutation.Invalid("type", "jenis bukti tidak dikenal"))
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Case], error) {
		return svc.AttachEvidence(r.Context(), chi.URLParam(r, "id"), ev)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, fn func(*Service) (*mutation.Ticket[Case], error)) {
	svc, err := h.service(r)
	if err != nil {
		screen.RespondError(w, err)
		return
	}
	ticket, err := fn(svc)
	if err != nil {
		screen.RespondError(w, err)
		return
	}
	screen.RespondTicket(w, r, svc.Screen(), ticket)
}
