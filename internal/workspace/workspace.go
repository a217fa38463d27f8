// Package workspace holds the screens of each signed-in browser session.
//
// A workspace is built lazily on the first request of a session and owns one
// screen per dashboard list, so every session has its own stores, filters
// and pending mutations. Idle workspaces are evicted; the next request
// rebuilds and reloads them.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/fraud"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/orders"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/products"
	"github.com/odyssey-erp/marketdesk/internal/screen"
	"github.com/odyssey-erp/marketdesk/internal/session"
	"github.com/odyssey-erp/marketdesk/internal/shared"
	"github.com/odyssey-erp/marketdesk/internal/vouchers"
)

// Screen names.
const (
	ScreenFraud    = "fraud"
	ScreenOrders   = "orders"
	ScreenVouchers = "vouchers"
	ScreenProducts = "products"
)

var roleScreens = map[string][]string{
	session.RoleAdmin:  {ScreenFraud, ScreenOrders, ScreenVouchers, ScreenProducts},
	session.RoleSeller: {ScreenOrders, ScreenVouchers, ScreenProducts},
}

// Roles returns the roles that may open a screen.
func Roles(screenName string) []string {
	var out []string
	for role, screens := range roleScreens {
		if slices.Contains(screens, screenName) {
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return out
}

// Allowed reports whether role may open the screen.
func Allowed(role, screenName string) bool {
	return slices.Contains(roleScreens[role], screenName)
}

// Deps are shared by every workspace.
type Deps struct {
	API             *marketapi.Client
	Credentials     session.Store
	Notifications   *notify.Queue
	Metrics         mutation.Recorder
	Formatter       *export.Formatter
	Validate        *validator.Validate
	MutationTimeout time.Duration
	Logger          *slog.Logger
}

// Workspace is the set of screens of one session.
type Workspace struct {
	SessionID string
	Role      string
	Fraud     *fraud.Service
	Orders    *orders.Service
	Vouchers  *vouchers.Service
	Products  *products.Service
}

type loader interface {
	EnsureLoaded(ctx context.Context) error
}

func (w *Workspace) screens() map[string]loader {
	return map[string]loader{
		ScreenFraud:    w.Fraud.Screen(),
		ScreenOrders:   w.Orders.Screen(),
		ScreenVouchers: w.Vouchers.Screen(),
		ScreenProducts: w.Products.Screen(),
	}
}

// Warm loads every screen the workspace's role may open, concurrently.
func (w *Workspace) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, s := range w.screens() {
		if !Allowed(w.Role, name) {
			continue
		}
		g.Go(func() error {
			if err := s.EnsureLoaded(ctx); err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Registry maps session ids to workspaces, evicting idle ones.
type Registry struct {
	deps  Deps
	mu    sync.Mutex
	cache *expirable.LRU[string, *Workspace]
}

// NewRegistry constructs a Registry holding at most size workspaces, each
// evicted after idle without use.
func NewRegistry(deps Deps, size int, idle time.Duration) *Registry {
	if size <= 0 {
		size = 1024
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validate == nil {
		deps.Validate = mutation.NewValidator()
	}
	r := &Registry{deps: deps}
	r.cache = expirable.NewLRU(size, func(id string, _ *Workspace) {
		deps.Logger.Debug("workspace evicted", slog.String("session", id))
	}, idle)
	return r
}

// Get returns the session's workspace, building it on first use or when the
// session's role changed. Each call restarts the idle timer.
func (r *Registry) Get(sessionID, role string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.cache.Get(sessionID); ok && ws.Role == role {
		r.cache.Add(sessionID, ws)
		return ws
	}
	ws := r.build(sessionID, role)
	r.cache.Add(sessionID, ws)
	return ws
}

// Drop discards the session's workspace.
func (r *Registry) Drop(sessionID string) {
	r.cache.Remove(sessionID)
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) build(sessionID, role string) *Workspace {
	logger := r.deps.Logger.With(slog.String("session", sessionID))
	api := r.deps.API.WithTokens(session.TokenSource(r.deps.Credentials, sessionID))

	var notifier notify.Notifier
	if r.deps.Notifications != nil {
		notifier = r.deps.Notifications.For(sessionID)
	}
	opts := screen.Options{
		Formatter: r.deps.Formatter,
		Logger:    logger,
		Mutation: mutation.Config{
			Timeout:   r.deps.MutationTimeout,
			Notifier:  notifier,
			Escalator: session.NewEscalator(r.deps.Credentials, sessionID, notifier, r.Drop, logger),
			Logger:    logger,
			Metrics:   r.deps.Metrics,
			Validate:  r.deps.Validate,
		},
	}
	return &Workspace{
		SessionID: sessionID,
		Role:      role,
		Fraud:     fraud.NewService(api, opts),
		Orders:    orders.NewService(api, opts),
		Vouchers:  vouchers.NewService(api, opts),
		Products:  products.NewService(api, opts),
	}
}

// FromRequest returns the workspace of the request's signed-in session.
func (r *Registry) FromRequest(req *http.Request) (*Workspace, error) {
	sess := shared.SessionFromContext(req.Context())
	if sess == nil || sess.User() == "" {
		return nil, fmt.Errorf("%w: sign in required", httpx.ErrUnauthorized)
	}
	return r.Get(sess.ID, sess.Role()), nil
}

func resolve[S any](r *Registry, screenName string, pick func(*Workspace) S) func(*http.Request) (S, error) {
	return func(req *http.Request) (S, error) {
		var zero S
		ws, err := r.FromRequest(req)
		if err != nil {
			return zero, err
		}
		if !Allowed(ws.Role, screenName) {
			return zero, fmt.Errorf("%w: %s", httpx.ErrForbidden, screenName)
		}
		return pick(ws), nil
	}
}

// FraudService resolves the fraud service of the request's session.
func (r *Registry) FraudService() func(*http.Request) (*fraud.Service, error) {
	return resolve(r, ScreenFraud, func(ws *Workspace) *fraud.Service { return ws.Fraud })
}

// OrderService resolves the order service of the request's session.
func (r *Registry) OrderService() func(*http.Request) (*orders.Service, error) {
	return resolve(r, ScreenOrders, func(ws *Workspace) *orders.Service { return ws.Orders })
}

// VoucherService resolves the voucher service of the request's session.
func (r *Registry) VoucherService() func(*http.Request) (*vouchers.Service, error) {
	return resolve(r, ScreenVouchers, func(ws *Workspace) *vouchers.Service { return ws.Vouchers })
}

// ProductService resolves the product service of the request's session.
func (r *Registry) ProductService() func(*http.Request) (*products.Service, error) {
	return resolve(r, ScreenProducts, func(ws *Workspace) *products.Service { return ws.Products })
}
