package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/fraud"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/observability"
	"github.com/odyssey-erp/marketdesk/internal/orders"
	"github.com/odyssey-erp/marketdesk/internal/products"
	"github.com/odyssey-erp/marketdesk/internal/session"
	"github.com/odyssey-erp/marketdesk/internal/shared"
	"github.com/odyssey-erp/marketdesk/internal/vouchers"
	"github.com/odyssey-erp/marketdesk/internal/workspace"
	"github.com/odyssey-erp/marketdesk/jobs"
	"github.com/odyssey-erp/marketdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	SessionHandler      *session.Handler
	NotificationHandler *notify.Handler
	ExportHandler       *export.Handler
	FraudHandler        *fraud.Handler
	OrderHandler        *orders.Handler
	VoucherHandler      *vouchers.Handler
	ProductHandler      *products.Handler

	ReportHandler *report.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with marketdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/session", params.SessionHandler.MountRoutes)
	r.Route("/notifications", params.NotificationHandler.MountRoutes)

	screens := []struct {
		path   string
		screen string
		mount  func(chi.Router)
	}{
		{"/fraud-cases", workspace.ScreenFraud, params.FraudHandler.MountRoutes},
		{"/orders", workspace.ScreenOrders, params.OrderHandler.MountRoutes},
		{"/vouchers", workspace.ScreenVouchers, params.VoucherHandler.MountRoutes},
		{"/products", workspace.ScreenProducts, params.ProductHandler.MountRoutes},
	}
	for _, s := range screens {
		r.Route(s.path, func(r chi.Router) {
			r.Use(session.RequireRole(workspace.Roles(s.screen)...))
			s.mount(r)
		})
	}

	r.With(session.RequireRole(session.RoleAdmin, session.RoleSeller)).Route("/exports", params.ExportHandler.MountRoutes)

	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
