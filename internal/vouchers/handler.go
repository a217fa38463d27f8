package vouchers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// Handler manages voucher endpoints.
type Handler struct {
	resolve func(*http.Request) (*Service, error)
	list    *screen.Handler[Voucher]
}

// NewHandler builds Handler instance.
func NewHandler(resolve func(*http.Request) (*Service, error), deps screen.HandlerDeps) *Handler {
	h := &Handler{resolve: resolve}
	h.list = screen.NewHandler(func(r *http.Request) (*screen.Screen[Voucher], error) {
		svc, err := resolve(r)
		if err != nil {
			return nil, err
		}
		return svc.Screen(), nil
	}, deps)
	return h
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	h.list.MountRoutes(r)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Post("/{id}/toggle", h.toggle)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Voucher], error) {
		return svc.Create(r.Context(), in)
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Voucher], error) {
		return svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	})
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Voucher], error) {
		return svc.Toggle(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Voucher], error) {
		return svc.Delete(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, fn func(*Service) (*mutation.Ticket[Voucher], error)) {
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
