package marketapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func staticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}

func TestListDecodesDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","status":"PENDING"},{"id":"2","status":"SELESAI"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil, staticToken("tok"))
	var out []order
	require.NoError(t, client.List(context.Background(), "orders", &out))
	require.Len(t, out, 2)
	assert.Equal(t, "SELESAI", out[1].Status)
}

func TestListDecodesEmptyData(t *testing.T) {
	for _, body := range []string{`{"data":null}`, `{"data":[]}`, `[]`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil, nil)
			out := []order{{ID: "stale"}}
			require.NoError(t, client.List(context.Background(), "vouchers", &out))
			assert.Empty(t, out)
		})
	}
}

func TestPatchSendsPartialBodyAndDecodesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/orders/7", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"status": "DIPROSES"}, body)
		_, _ = w.Write([]byte(`{"id":"7","status":"DIPROSES"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	var out order
	require.NoError(t, client.Patch(context.Background(), "orders", "7", map[string]string{"status": "DIPROSES"}, &out))
	assert.Equal(t, order{ID: "7", Status: "DIPROSES"}, out)
}

func TestActionPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/7/confirm-payment", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	require.NoError(t, client.Action(context.Background(), "orders", "7", "confirm-payment", nil, &order{}))
}

func TestErrorEnvelopeAndClassification(t *testing.T) {
	status := http.StatusUnprocessableEntity
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"Stok tidak cukup"}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, nil, nil)

	err := client.Delete(context.Background(), "products", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.False(t, IsAuth(err))
	assert.Equal(t, "Stok tidak cukup", UserMessage(err, "fallback"))

	status = http.StatusUnauthorized
	err = client.Delete(context.Background(), "products", "1")
	assert.True(t, IsAuth(err))
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, nil, nil)
	err := client.Delete(context.Background(), "vouchers", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "Terjadi kesalahan", UserMessage(err, "Terjadi kesalahan"))
}

func TestTokenSourceFailureStopsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	client := NewClient(srv.URL, nil, TokenFunc(func(context.Context) (string, error) {
		return "", ErrUnauthorized
	}))
	err := client.List(context.Background(), "orders", &[]order{})
	assert.True(t, IsAuth(err))
	assert.False(t, called)
}

func TestCreateMultipartSendsFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Kemeja", r.FormValue("title"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "shirt.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		_, _ = w.Write([]byte(`{"data":{"id":"99","status":"draft"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	var out order
	err := client.CreateMultipart(context.Background(), "products", map[string]string{"title": "Kemeja"},
		&File{Name: "shirt.png", Content: strings.NewReader("PNGDATA")}, &out)
	require.NoError(t, err)
	assert.Equal(t, "99", out.ID)
}
