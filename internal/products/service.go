package products

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// MaxImageSize bounds an uploaded product image.
const MaxImageSize = 5 << 20

// API is the part of the marketplace client the product screen uses.
type API interface {
	List(ctx context.Context, resource string, out any) error
	CreateMultipart(ctx context.Context, resource string, fields map[string]string, file *marketapi.File, out any) error
	Patch(ctx context.Context, resource, id string, body, out any) error
	Delete(ctx context.Context, resource, id string) error
	Action(ctx context.Context, resource, id, action string, body, out any) error
}

// Image is an uploaded product picture held in memory until the write runs.
type Image struct {
	Name string
	Data []byte
}

func (img *Image) check() error {
	if img == nil {
		return nil
	}
	if len(img.Data) == 0 {
		return mutation.Invalid("image", "berkas kosong")
	}
	if len(img.Data) > MaxImageSize {
		return mutation.Invalid("image", "maksimal 5 MB")
	}
	if !strings.HasPrefix(http.DetectContentType(img.Data), "image/") {
		return mutation.Invalid("image", "harus berupa gambar")
	}
	return nil
}

// Service holds one session's product screen and its write operations.
type Service struct {
	api    API
	screen *screen.Screen[Product]
}

// NewService wires a product screen over api.
func NewService(api API, opts screen.Options) *Service {
	svc := &Service{api: api}
	svc.screen = screen.New(screen.Config[Product]{
		Name:        "products",
		Title:       "Katalog Produk",
		Schema:      Schema(),
		Columns:     Columns(),
		Load:        svc.load,
		DefaultSort: listview.SortState{Key: "created_at", Direction: listview.Desc},
		Formatter:   opts.Formatter,
		Logger:      opts.Logger,
		Mutation:    opts.Mutation,
	})
	return svc
}

// Screen exposes the list screen.
func (s *Service) Screen() *screen.Screen[Product] { return s.screen }

func (s *Service) load(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.api.List(ctx, Resource, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Create uploads a new product with an optional image.
func (s *Service) Create(ctx context.Context, in Input, img *Image) (*mutation.Ticket[Product], error) {
	in = in.normalize()
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if err := img.check(); err != nil {
		return nil, err
	}
	return s.screen.Create(ctx, mutation.Create[Product]{
		Label: "create",
		Build: func(id string) Product {
			return in.apply(Product{ID: id})
		},
		Write: func(ctx context.Context, _ Product) (Product, error) {
			fields := map[string]string{
				"title":       in.Title,
				"description": in.Description,
				"category":    in.Category,
				"price":       strconv.FormatFloat(in.Price, 'f', -1, 64),
				"stock":       strconv.Itoa(in.Stock),
				"status":      string(in.Status),
			}
			var file *marketapi.File
			if img != nil {
				file = &marketapi.File{Field: "image", Name: img.Name, Content: bytes.NewReader(img.Data)}
			}
			var out Product
			err := s.api.CreateMultipart(ctx, Resource, fields, file, &out)
			return out, err
		},
		Success: "Produk " + in.Title + " berhasil ditambahkan",
	})
}

// Update replaces the editable fields of a product.
func (s *Service) Update(ctx context.Context, id string, in Input) (*mutation.Ticket[Product], error) {
	in = in.normalize()
	return s.patch(ctx, id, "update", func(p Product) Product { return in.apply(p) }, in, "Produk diperbarui")
}

// UpdatePrice changes the price of a product.
func (s *Service) UpdatePrice(ctx context.Context, id string, price float64) (*mutation.Ticket[Product], error) {
	return s.patch(ctx, id, "price", func(p Product) Product {
		p.Price = price
		return p
	}, map[string]float64{"price": price}, "Harga diperbarui")
}

// UpdateStock changes the available stock of a product.
func (s *Service) UpdateStock(ctx context.Context, id string, stock int) (*mutation.Ticket[Product], error) {
	return s.patch(ctx, id, "stock", func(p Product) Product {
		p.Stock = stock
		return p
	}, map[string]int{"stock": stock}, "Stok diperbarui")
}

func (s *Service) patch(ctx context.Context, id, label string, apply func(Product) Product, body any, success string) (*mutation.Ticket[Product], error) {
	return s.screen.Update(ctx, mutation.Update[Product]{
		RecordID: id,
		Label:    label,
		Apply: func(p Product) (Product, error) {
			return apply(p), nil
		},
		Write: func(ctx context.Context, _ Product) (Product, error) {
			var out Product
			err := s.api.Patch(ctx, Resource, id, body, &out)
			return out, err
		},
		Success: success,
	})
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) (*mutation.Ticket[Product], error) {
	return s.screen.Delete(ctx, mutation.Delete[Product]{
		RecordID: id,
		Label:    "delete",
		Write: func(ctx context.Context, _ Product) error {
			return s.api.Delete(ctx, Resource, id)
		},
		Success: "Produk dihapus",
	})
}

// SetLiked likes or unlikes a product on behalf of the current user.
func (s *Service) SetLiked(ctx context.Context, id string, liked bool) (*mutation.Ticket[Product], error) {
	action, success := "unlike", "Batal menyukai produk"
	if liked {
		action, success = "like", "Produk disukai"
	}
	return s.screen.Update(ctx, mutation.Update[Product]{
		RecordID: id,
		Op:       mutation.OpAction,
		Label:    action,
		Apply: func(p Product) (Product, error) {
			if p.Liked == liked {
				return p, mutation.Invalid("liked", "tidak ada perubahan")
			}
			p.Liked = liked
			if liked {
				p.Likes++
			} else if p.Likes > 0 {
				p.Likes--
			}
			return p, nil
		},
		Write: func(ctx context.Context, _ Product) (Product, error) {
			var out Product
			err := s.api.Action(ctx, Resource, id, action, nil, &out)
			return out, err
		},
		Success: success,
	})
}
