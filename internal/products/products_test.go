package products

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type marketplace struct {
	mu       sync.Mutex
	products []Product
	uploads  map[string]string
	image    []byte
	likes    []string
	patches  []map[string]any
	fail     int
}

func (m *marketplace) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": m.products})
	})
	r.Post("/products", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.uploads = map[string]string{}
		for k := range r.MultipartForm.Value {
			m.uploads[k] = r.FormValue(k)
		}
		if f, _, err := r.FormFile("image"); err == nil {
			m.image, _ = io.ReadAll(f)
			_ = f.Close()
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": Product{
			ID: "p-99", Title: m.uploads["title"], Status: Status(m.uploads["status"]),
			ImageURL: "https://cdn.example.com/p-99.png",
		}})
	})
	r.Post("/products/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.likes = append(m.likes, chi.URLParam(r, "id")+"/"+chi.URLParam(r, "action"))
		if m.fail > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"Coba lagi nanti"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Patch("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.patches = append(m.patches, body)
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func sampleProducts() []Product {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []Product{
		{ID: "p1", Title: "Kopi Gayo", Category: "minuman", Price: 85000, Stock: 12, Status: StatusActive, Likes: 4, CreatedAt: at},
		{ID: "p2", Title: "Teh Melati", Category: "minuman", Price: 30000, Stock: 0, Status: StatusDraft, Likes: 9, CreatedAt: at.AddDate(0, 1, 0)},
		{ID: "p3", Title: "Keripik Singkong", Category: "makanan", Price: 15000, Stock: 40, Status: StatusActive, Likes: 1, CreatedAt: at.AddDate(0, 2, 0)},
	}
}

func newService(t *testing.T, m *marketplace) (*Service, *notify.Recorder) {
	t.Helper()
	srv := httptest.NewServer(m.routes())
	t.Cleanup(srv.Close)
	rec := &notify.Recorder{}
	svc := NewService(marketapi.NewClient(srv.URL, srv.Client(), nil), screen.Options{
		Mutation: mutation.Config{Notifier: rec, Validate: mutation.NewValidator(), Timeout: 2 * time.Second},
	})
	require.NoError(t, svc.Screen().EnsureLoaded(context.Background()))
	return svc, rec
}

func TestPriceRangeAndCategory(t *testing.T) {
	svc, _ := newService(t, &marketplace{products: sampleProducts()})
	s := svc.Screen()
	s.SetCriteria(listview.Criteria{"price_min": "20000", "price_max": "90000"})
	page := s.Page()
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "p2", page.Rows[0].Record.ID)

	s.SetCriteria(listview.Criteria{"category": "MAKANAN"})
	page = s.Page()
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "p3", page.Rows[0].Record.ID)

	s.SetCriteria(listview.Criteria{"price_min": "abc"})
	assert.True(t, s.Page().Empty)
}

func TestSortByLikes(t *testing.T) {
	svc, _ := newService(t, &marketplace{products: sampleProducts()})
	s := svc.Screen()
	_, err := s.ToggleSort("likes")
	require.NoError(t, err)
	var got []int
	for _, row := range s.Page().Rows {
		got = append(got, row.Record.Likes)
	}
	assert.Equal(t, []int{1, 4, 9}, got)
}

func TestCreateUploadsMultipart(t *testing.T) {
	m := &marketplace{products: sampleProducts()}
	svc, rec := newService(t, m)

	img := &Image{Name: "kopi.png", Data: pngHeader}
	ticket, err := svc.Create(context.Background(), Input{Title: " Kopi Toraja ", Price: 99000.5, Stock: 3, Status: StatusActive}, img)
	require.NoError(t, err)
	assert.Equal(t, "Kopi Toraja", ticket.Optimistic.Title)

	out, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, "p-99", final.ID)
	assert.Equal(t, "https://cdn.example.com/p-99.png", final.ImageURL)
	assert.Equal(t, "99000.5", m.uploads["price"])
	assert.Equal(t, "3", m.uploads["stock"])
	assert.Equal(t, pngHeader, m.image)
	assert.Equal(t, "Produk Kopi Toraja berhasil ditambahkan", rec.All()[0].Message)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, &marketplace{products: sampleProducts()})

	_, err := svc.Create(context.Background(), Input{Title: "  ", Price: 1}, nil)
	var vErr *mutation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "wajib diisi", vErr.Fields["title"])

	_, err = svc.Create(context.Background(), Input{Title: "Teh", Price: 1}, &Image{Name: "a.txt", Data: []byte("plain text")})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "harus berupa gambar", vErr.Fields["image"])

	_, err = svc.UpdateStock(context.Background(), "p1", -2)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "stock")
	assert.Equal(t, 3, svc.Screen().Mutations().Store().Len())
}

func TestLikeRollsBackOnFailure(t *testing.T) {
	m := &marketplace{products: sampleProducts(), fail: 1}
	svc, rec := newService(t, m)

	ticket, err := svc.SetLiked(context.Background(), "p1", true)
	require.NoError(t, err)
	assert.Equal(t, 5, ticket.Optimistic.Likes)

	out, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, out.RolledBack)
	assert.Equal(t, 4, final.Likes)
	assert.False(t, final.Liked)
	assert.Equal(t, []string{"p1/like"}, m.likes)
	assert.Equal(t, "Coba lagi nanti", rec.All()[0].Message)

	_, err = svc.SetLiked(context.Background(), "p1", false)
	assert.True(t, mutation.IsValidation(err))
}

func TestHandlerMultipartCreate(t *testing.T) {
	m := &marketplace{products: sampleProducts()}
	svc, _ := newService(t, m)
	h := NewHandler(func(*http.Request) (*Service, error) { return svc, nil }, screen.HandlerDeps{})
	router := chi.NewRouter()
	router.Route("/products", h.MountRoutes)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("title", "Madu Hutan"))
	require.NoError(t, mw.WriteField("price", "120000"))
	require.NoError(t, mw.WriteField("stock", "7"))
	part, err := mw.CreateFormFile("image", "madu.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/?wait=1", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp screen.MutationResponse[Product]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "p-99", resp.Record.ID)
	assert.Equal(t, "draft", m.uploads["status"])

	body = &bytes.Buffer{}
	mw = multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("title", "Gula Aren"))
	require.NoError(t, mw.WriteField("price", "murah"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "harus berupa angka"))
}

func TestHandlerPriceAndUnlike(t *testing.T) {
	m := &marketplace{products: sampleProducts()}
	svc, _ := newService(t, m)
	h := NewHandler(func(*http.Request) (*Service, error) { return svc, nil }, screen.HandlerDeps{})
	router := chi.NewRouter()
	router.Route("/products", h.MountRoutes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/products/p2/price?wait=1", strings.NewReader(`{"price":32000}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	p, err := svc.Screen().Get("p2")
	require.NoError(t, err)
	assert.Equal(t, 32000.0, p.Price)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/products/p2/like", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestStockUpdateIgnoresUntouchedImageURL(t *testing.T) {
	records := sampleProducts()
	records[0].ImageURL = "/uploads/kopi.jpg"
	m := &marketplace{products: records}
	svc, _ := newService(t, m)

	ticket, err := svc.UpdateStock(context.Background(), "p1", 5)
	require.NoError(t, err)
	out, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, 5, final.Stock)
	assert.Equal(t, "/uploads/kopi.jpg", final.ImageURL)
}

func TestUpdateWithoutStatusKeepsStatus(t *testing.T) {
	m := &marketplace{products: sampleProducts()}
	svc, _ := newService(t, m)

	ticket, err := svc.Update(context.Background(), "p1", Input{Title: "Kopi Gayo Premium", Category: "minuman", Price: 90000, Stock: 10})
	require.NoError(t, err)
	out, final, err := ticket.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, StatusActive, final.Status)
	assert.Equal(t, "Kopi Gayo Premium", final.Title)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.patches, 1)
	assert.NotContains(t, m.patches[0], "status")
}

func TestCreateDefaultsToDraft(t *testing.T) {
	m := &marketplace{products: sampleProducts()}
	svc, _ := newService(t, m)

	ticket, err := svc.Create(context.Background(), Input{Title: "Gula Aren", Price: 20000, Stock: 5}, nil)
	require.NoError(t, err)
	_, _, err = ticket.Wait(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, "draft", m.uploads["status"])
}
