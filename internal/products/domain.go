// Package products serves the seller product catalogue screen.
package products

import (
	"strings"
	"time"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/listview"
)

// Resource is the marketplace API collection for products.
const Resource = "products"

// Status of a product listing.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

var statusLabels = map[string]string{
	string(StatusActive):   "Aktif",
	string(StatusDraft):    "Draf",
	string(StatusArchived): "Diarsipkan",
}

// Product is a catalogue listing.
type Product struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Category    string    `json:"category" validate:"max=100"`
	Price       float64   `json:"price" validate:"gte=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
	Status      Status    `json:"status" validate:"oneof=active draft archived"`
	ImageURL    string    `json:"image_url" validate:"omitempty,url"`
	Likes       int       `json:"likes" validate:"gte=0"`
	Liked       bool      `json:"liked"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements entity.Record.
func (p Product) RecordID() string { return p.ID }

// Input carries the editable product fields.
type Input struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Status      Status  `json:"status,omitempty"`
}

func (in Input) normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	return in
}

func (in Input) apply(p Product) Product {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.Price = in.Price
	p.Stock = in.Stock
	if in.Status != "" {
		p.Status = in.Status
	}
	return p
}

// Schema declares the product screen's filters and sort keys.
func Schema() *listview.Schema[Product] {
	return listview.NewSchema[Product]().
		WithFilter("status", listview.Equals(func(p Product) string { return string(p.Status) })).
		WithFilter("category", listview.Equals(func(p Product) string { return p.Category })).
		WithFilter("search", listview.Search(
			func(p Product) string { return p.Title },
			func(p Product) string { return p.Description },
		)).
		WithFilter("price_min", listview.NumberAtLeast(func(p Product) float64 { return p.Price })).
		WithFilter("price_max", listview.NumberAtMost(func(p Product) float64 { return p.Price })).
		WithSort("title", listview.ByString(func(p Product) string { return p.Title })).
		WithSort("price", listview.ByNumber(func(p Product) float64 { return p.Price })).
		WithSort("stock", listview.ByNumber(func(p Product) float64 { return float64(p.Stock) })).
		WithSort("created_at", listview.ByTime(func(p Product) time.Time { return p.CreatedAt })).
		WithSort("likes", listview.ByNumber(func(p Product) float64 { return float64(p.Likes) }))
}

// Columns declares the export layout.
func Columns() []export.Column[Product] {
	return []export.Column[Product]{
		{Header: "Nama Produk", Cell: func(p Product, _ *export.Formatter) string { return p.Title }},
		{Header: "Kategori", Cell: func(p Product, _ *export.Formatter) string { return p.Category }},
		{Header: "Harga", Cell: func(p Product, f *export.Formatter) string { return f.Currency(p.Price) }},
		{Header: "Stok", Cell: func(p Product, f *export.Formatter) string { return f.Int(p.Stock) }},
		{Header: "Status", Cell: func(p Product, f *export.Formatter) string { return f.Label(statusLabels, string(p.Status)) }},
		{Header: "Disukai", Cell: func(p Product, f *export.Formatter) string { return f.Int(p.Likes) }},
		{Header: "Dibuat", Cell: func(p Product, f *export.Formatter) string { return f.Date(p.CreatedAt) }},
	}
}
