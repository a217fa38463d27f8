package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// Handler manages order endpoints.
type Handler struct {
	resolve func(*http.Request) (*Service, error)
	list    *screen.Handler[Order]
}

// NewHandler builds Handler instance.
func NewHandler(resolve func(*http.Request) (*Service, error), deps screen.HandlerDeps) *Handler {
	h := &Handler{resolve: resolve}
	h.list = screen.NewHandler(func(r *http.Request) (*screen.Screen[Order], error) {
		svc, err := resolve(r)
		if err != nil {
			return nil, err
		}
		return svc.Screen(), nil
	}, deps)
	return h
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	h.list.MountRoutes(r)
	r.Put("/{id}/status", h.updateStatus)
	r.Patch("/{id}/tracking", h.setTracking)
	r.Post("/{id}/confirm-payment", h.confirmPayment)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status         Status `json:"status"`
		TrackingNumber string `json:"tracking_number"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Order], error) {
		return svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.TrackingNumber)
	})
}

func (h *Handler) setTracking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingNumber string `json:"tracking_number"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Order], error) {
		return svc.SetTracking(r.Context(), chi.URLParam(r, "id"), req.TrackingNumber)
	})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Order], error) {
		return svc.ConfirmPayment(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, fn func(*Service) (*mutation.Ticket[Order], error)) {
	if _, err := h.list.Load(r); err != nil {
		screen.RespondError(w, err)
		return
	}
	svc, err := h.resolve(r)
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
