package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/marketdesk/internal/entity"
	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/shared"
)

// Resolver finds the screen for the requesting session.
type Resolver[T entity.Record] func(r *http.Request) (*Screen[T], error)

// PDFRenderer renders an export table synchronously.
type PDFRenderer interface {
	Render(ctx context.Context, table export.Table) ([]byte, error)
}

// ExportQueue schedules an asynchronous PDF export and returns its job id.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, owner, screen string, table export.Table) (string, error)
}

// HandlerDeps are shared by every screen handler.
type HandlerDeps struct {
	Logger *slog.Logger
	PDF    PDFRenderer
	Queue  ExportQueue
}

// Handler serves the list, sort, expansion and export routes of one screen.
type Handler[T entity.Record] struct {
	resolve Resolver[T]
	deps    HandlerDeps
}

// NewHandler constructs a screen handler.
func NewHandler[T entity.Record](resolve Resolver[T], deps HandlerDeps) *Handler[T] {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler[T]{resolve: resolve, deps: deps}
}

// MountRoutes registers the list routes.
func (h *Handler[T]) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/reload", h.reload)
	r.Post("/sort/{key}", h.sort)
	r.Post("/{id}/expand", h.expand)
	r.Get("/export.csv", h.exportCSV)
	r.Get("/export.pdf", h.exportPDF)
	r.Post("/export/pdf/jobs", h.enqueuePDF)
}

// Load resolves the session's screen and performs its initial load.
func (h *Handler[T]) Load(r *http.Request) (*Screen[T], error) {
	s, err := h.resolve(r)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureLoaded(r.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *Handler[T]) list(w http.ResponseWriter, r *http.Request) {
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := s.ApplyQuery(r.URL.Query()); err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.Page())
}

func (h *Handler[T]) reload(w http.ResponseWriter, r *http.Request) {
	s, err := h.resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := s.Reload(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.Page())
}

func (h *Handler[T]) sort(w http.ResponseWriter, r *http.Request) {
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := s.ToggleSort(chi.URLParam(r, "key")); err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.Page())
}

func (h *Handler[T]) expand(w http.ResponseWriter, r *http.Request) {
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	expanded, err := s.ToggleExpand(id)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "expanded": expanded})
}

func (h *Handler[T]) exportCSV(w http.ResponseWriter, r *http.Request) {
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	table := s.Export()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(s.Name(), "csv"))
	if err := export.WriteCSV(w, table); err != nil {
		h.deps.Logger.Error("write csv export", slog.String("screen", s.Name()), slog.Any("error", err))
	}
}

func (h *Handler[T]) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.deps.PDF == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf export not configured")
		return
	}
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pdf, err := h.deps.PDF.Render(r.Context(), s.Export())
	if err != nil {
		h.deps.Logger.Error("render pdf export", slog.String("screen", s.Name()), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "Gagal membuat dokumen PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(s.Name(), "pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func (h *Handler[T]) enqueuePDF(w http.ResponseWriter, r *http.Request) {
	if h.deps.Queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "export queue not configured")
		return
	}
	s, err := h.Load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := h.deps.Queue.EnqueueExport(r.Context(), sess.ID, s.Name(), s.Export())
	if err != nil {
		h.deps.Logger.Error("enqueue pdf export", slog.String("screen", s.Name()), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "Ekspor tidak dapat dijadwalkan")
		return
	}
	w.Header().Set("Location", "/exports/"+id)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(export.StatusPending)})
}

func (h *Handler[T]) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, context.Canceled) {
		h.deps.Logger.Warn("screen request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	RespondError(w, err)
}

func attachment(name, ext string) string {
	return fmt.Sprintf(`attachment; filename="%s-%s.%s"`, name, time.Now().UTC().Format("20060102-150405"), ext)
}

// RespondError classifies screen, mutation and API errors into problem
// responses.
func RespondError(w http.ResponseWriter, err error) {
	httpx.RespondError(w, Classify(err))
}

// Classify wraps err with the httpx sentinel matching its kind.
func Classify(err error) error {
	switch {
	case mutation.IsValidation(err):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, mutation.ErrNotFound), errors.Is(err, entity.ErrNotFound):
		return fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, ErrBusy), errors.Is(err, mutation.ErrRecordBusy):
		return fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	case errors.Is(err, ErrUnknownSortKey):
		return fmt.Errorf("%w: %w", httpx.ErrBadRequest, err)
	case marketapi.IsAuth(err):
		return fmt.Errorf("%w: %w", httpx.ErrUnauthorized, err)
	case errors.Is(err, marketapi.ErrNetwork):
		return fmt.Errorf("%w: %w", httpx.ErrUpstream, err)
	}
	return err
}
