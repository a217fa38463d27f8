package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/marketdesk/internal/app"
	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/fraud"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/observability"
	"github.com/odyssey-erp/marketdesk/internal/orders"
	"github.com/odyssey-erp/marketdesk/internal/products"
	"github.com/odyssey-erp/marketdesk/internal/screen"
	"github.com/odyssey-erp/marketdesk/internal/session"
	"github.com/odyssey-erp/marketdesk/internal/shared"
	"github.com/odyssey-erp/marketdesk/internal/vouchers"
	"github.com/odyssey-erp/marketdesk/internal/workspace"
)

type dashboard struct {
	server   *httptest.Server
	client   *http.Client
	csrf     string
	confirms atomic.Int32
}

func newMarketplace(t *testing.T, d *dashboard) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	order := map[string]any{
		"id": "o-1", "order_number": "INV/2024/000001", "buyer": "budi", "seller": "tokoabc",
		"status": "PENDING", "payment_status": "unpaid", "total": 150000,
		"created_at": "2024-08-17T10:00:00Z",
	}
	r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{order}})
	})
	r.Post("/orders/{id}/confirm-payment", func(w http.ResponseWriter, _ *http.Request) {
		d.confirms.Add(1)
		paid := map[string]any{}
		for k, v := range order {
			paid[k] = v
		}
		paid["payment_status"] = "paid"
		_ = json.NewEncoder(w).Encode(map[string]any{"data": paid, "message": "ok"})
	})
	for _, resource := range []string{"fraud-cases", "vouchers", "products"} {
		r.Get("/"+resource, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		})
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newDashboard(t *testing.T) *dashboard {
	t.Helper()
	d := &dashboard{}
	market := newMarketplace(t, d)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimit: 1000}
	sessions := shared.NewSessionManager(rdb, "marketdesk_sid", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	credentials := session.NewRedisStore(rdb, time.Hour)
	notifications := notify.NewQueue(rdb, time.Minute)

	var registry *workspace.Registry
	metrics := observability.NewMetrics(func() int { return registry.Len() })
	registry = workspace.NewRegistry(workspace.Deps{
		API:             marketapi.NewClient(market.URL, market.Client(), nil),
		Credentials:     credentials,
		Notifications:   notifications,
		Metrics:         metrics,
		Formatter:       export.MustFormatter("id-ID", "IDR"),
		MutationTimeout: 2 * time.Second,
		Logger:          logger,
	}, 16, time.Minute)

	deps := screen.HandlerDeps{Logger: logger}
	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessions,
		CSRFManager:         csrf,
		SessionHandler:      session.NewHandler(credentials, csrf, registry.Drop, logger),
		NotificationHandler: notify.NewHandler(notifications, logger),
		ExportHandler:       export.NewHandler(export.NewResults(rdb, time.Minute), logger),
		FraudHandler:        fraud.NewHandler(registry.FraudService(), deps),
		OrderHandler:        orders.NewHandler(registry.OrderService(), deps),
		VoucherHandler:      vouchers.NewHandler(registry.VoucherService(), deps),
		ProductHandler:      products.NewHandler(registry.ProductService(), deps),
		Metrics:             metrics,
	})
	d.server = httptest.NewServer(router)
	t.Cleanup(d.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	d.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}
	return d
}

func (d *dashboard) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, d.server.URL+path, reader)
	require.NoError(t, err)
	if d.csrf != "" {
		req.Header.Set(shared.CSRFHeader, d.csrf)
	}
	resp, err := d.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (d *dashboard) signIn(t *testing.T, role string) {
	t.Helper()
	resp, body := d.do(t, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(body, &status))
	require.NotEmpty(t, status.CSRFToken)
	d.csrf = status.CSRFToken

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("marketplace"))
	require.NoError(t, err)
	resp, body = d.do(t, http.MethodPost, "/session", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestOrderPaymentFlow(t *testing.T) {
	d := newDashboard(t)

	resp, _ := d.do(t, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	d.signIn(t, session.RoleAdmin)

	resp, body := d.do(t, http.MethodGet, "/orders?status=PENDING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "INV/2024/000001")

	resp, body = d.do(t, http.MethodPost, "/orders/o-1/confirm-payment?wait=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"payment_status":"paid"`)
	assert.Equal(t, int32(1), d.confirms.Load())

	resp, body = d.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []notify.Notification
	require.NoError(t, json.Unmarshal(body, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindSuccess, notes[0].Kind)

	resp, body = d.do(t, http.MethodGet, "/orders/export.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "INV/2024/000001")

	resp, body = d.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `marketdesk_mutations_total{op="action",result="confirmed",screen="orders"} 1`)
	assert.Contains(t, string(body), "marketdesk_workspaces 1")
}

func TestUnsafeRequestsNeedCSRFToken(t *testing.T) {
	d := newDashboard(t)
	d.signIn(t, session.RoleAdmin)

	d.csrf = ""
	resp, _ := d.do(t, http.MethodPost, "/orders/o-1/confirm-payment", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, d.confirms.Load())
}

func TestSellerCannotOpenFraudCases(t *testing.T) {
	d := newDashboard(t)
	d.signIn(t, session.RoleSeller)

	resp, _ := d.do(t, http.MethodGet, "/fraud-cases", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = d.do(t, http.MethodGet, "/vouchers", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = d.do(t, http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = d.do(t, http.MethodGet, "/vouchers", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
