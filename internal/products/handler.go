package products

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// Handler manages product endpoints.
type Handler struct {
	resolve func(*http.Request) (*Service, error)
	list    *screen.Handler[Product]
}

// NewHandler builds Handler instance.
func NewHandler(resolve func(*http.Request) (*Service, error), deps screen.HandlerDeps) *Handler {
	h := &Handler{resolve: resolve}
	h.list = screen.NewHandler(func(r *http.Request) (*screen.Screen[Product], error) {
		svc, err := resolve(r)
		if err != nil {
			return nil, err
		}
		return svc.Screen(), nil
	}, deps)
	return h
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	h.list.MountRoutes(r)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Patch("/{id}/price", h.updatePrice)
	r.Patch("/{id}/stock", h.updateStock)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/like", h.like)
	r.Delete("/{id}/like", h.unlike)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		httpx.RespondError(w, httpx.BadRequest("invalid multipart form"))
		return
	}
	in, err := formInput(r)
	if err != nil {
		screen.RespondError(w, err)
		return
	}
	img, err := formImage(r)
	if err != nil {
		screen.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.Create(r.Context(), in, img)
	})
}

func formInput(r *http.Request) (Input, error) {
	in := Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Status:      Status(r.FormValue("status")),
	}
	fields := map[string]string{}
	if v := strings.TrimSpace(r.FormValue("price")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields["price"] = "harus berupa angka"
		}
		in.Price = price
	}
	if v := strings.TrimSpace(r.FormValue("stock")); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			fields["stock"] = "harus berupa bilangan bulat"
		}
		in.Stock = stock
	}
	if len(fields) > 0 {
		return in, &mutation.ValidationError{Fields: fields}
	}
	return in, nil
}

func formImage(r *http.Request) (*Image, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, httpx.BadRequest("invalid image upload")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, httpx.BadRequest("invalid image upload")
	}
	return &Image{Name: header.Filename, Data: data}, nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	})
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price float64 `json:"price"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.UpdatePrice(r.Context(), chi.URLParam(r, "id"), req.Price)
	})
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock int `json:"stock"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.UpdateStock(r.Context(), chi.URLParam(r, "id"), req.Stock)
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.Delete(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.SetLiked(r.Context(), chi.URLParam(r, "id"), true)
	})
}

func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(svc *Service) (*mutation.Ticket[Product], error) {
		return svc.SetLiked(r.Context(), chi.URLParam(r, "id"), false)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, fn func(*Service) (*mutation.Ticket[Product], error)) {
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
