package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsIndexFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("landscape"))
		_, hdr, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", hdr.Filename)
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/", time.Second).RenderHTML(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf))
}

func TestRenderHTMLReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RenderHTML(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient("", 0)
	assert.ErrorIs(t, client.Ping(context.Background()), ErrNotConfigured)
	_, err := client.RenderHTML(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPingHandler(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer srv.Close()

	router := chi.NewRouter()
	router.Route("/report", NewHandler(NewClient(srv.URL, time.Second), nil).MountRoutes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	healthy = false
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
