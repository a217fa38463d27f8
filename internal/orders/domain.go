// Package orders serves the order management screen.
package orders

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
)

// Resource is the marketplace API collection for orders.
const Resource = "orders"

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "DIPROSES"
	StatusShipped   Status = "DIKIRIM"
	StatusCompleted Status = "SELESAI"
	StatusCancelled Status = "DIBATALKAN"
)

// Payment states.
const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

var statusLabels = map[string]string{
	string(StatusPending):   "Menunggu",
	string(StatusProcessed): "Diproses",
	string(StatusShipped):   "Dikirim",
	string(StatusCompleted): "Selesai",
	string(StatusCancelled): "Dibatalkan",
}

var paymentLabels = map[string]string{
	PaymentPaid:   "Lunas",
	PaymentUnpaid: "Belum Dibayar",
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusProcessed, StatusCancelled},
	StatusProcessed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusCompleted},
}

// Item is one order line.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is a marketplace order.
type Order struct {
	ID             string    `json:"id" validate:"required"`
	OrderNumber    string    `json:"order_number"`
	Buyer          string    `json:"buyer"`
	Seller         string    `json:"seller"`
	Status         Status    `json:"status" validate:"oneof=PENDING DIPROSES DIKIRIM SELESAI DIBATALKAN"`
	Payment        string    `json:"payment_status" validate:"oneof=paid unpaid"`
	Total          float64   `json:"total" validate:"gte=0"`
	TrackingNumber string    `json:"tracking_number" validate:"required_if=Status DIKIRIM,max=64"`
	Items          []Item    `json:"items" validate:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecordID implements entity.Record.
func (o Order) RecordID() string { return o.ID }

// CanTransition reports whether the order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if from == to || CanTransition(from, to) {
		return nil
	}
	return mutation.Invalid("status", fmt.Sprintf("tidak dapat berpindah dari %s ke %s", statusLabel(from), statusLabel(to)))
}

func statusLabel(s Status) string {
	if label, ok := statusLabels[string(s)]; ok {
		return label
	}
	return string(s)
}

// Schema declares the order screen's filters and sort keys.
func Schema() *listview.Schema[Order] {
	return listview.NewSchema[Order]().
		WithFilter("status", listview.Equals(func(o Order) string { return string(o.Status) })).
		WithFilter("payment", listview.Equals(func(o Order) string { return o.Payment })).
		WithFilter("search", listview.Search(
			func(o Order) string { return o.OrderNumber },
			func(o Order) string { return o.Buyer },
			func(o Order) string { return o.Seller },
		)).
		WithFilter("date_from", listview.DateFrom(func(o Order) time.Time { return o.CreatedAt })).
		WithFilter("date_to", listview.DateTo(func(o Order) time.Time { return o.CreatedAt })).
		WithSort("created_at", listview.ByTime(func(o Order) time.Time { return o.CreatedAt })).
		WithSort("total", listview.ByNumber(func(o Order) float64 { return o.Total })).
		WithSort("order_number", listview.ByString(func(o Order) string { return o.OrderNumber })).
		WithSort("buyer", listview.ByString(func(o Order) string { return o.Buyer }))
}

// Columns declares the export layout.
func Columns() []export.Column[Order] {
	return []export.Column[Order]{
		{Header: "No. Pesanan", Cell: func(o Order, _ *export.Formatter) string { return o.OrderNumber }},
		{Header: "Pembeli", Cell: func(o Order, _ *export.Formatter) string { return o.Buyer }},
		{Header: "Penjual", Cell: func(o Order, _ *export.Formatter) string { return o.Seller }},
		{Header: "Status", Cell: func(o Order, f *export.Formatter) string { return f.Label(statusLabels, string(o.Status)) }},
		{Header: "Pembayaran", Cell: func(o Order, f *export.Formatter) string { return f.Label(paymentLabels, o.Payment) }},
		{Header: "Jumlah Item", Cell: func(o Order, f *export.Formatter) string {
			qty := 0
			for _, item := range o.Items {
				qty += item.Quantity
			}
			return f.Int(qty)
		}},
		{Header: "Total", Cell: func(o Order, f *export.Formatter) string { return f.Currency(o.Total) }},
		{Header: "No. Resi", Cell: func(o Order, _ *export.Formatter) string { return o.TrackingNumber }},
		{Header: "Tanggal", Cell: func(o Order, f *export.Formatter) string { return f.DateTime(o.CreatedAt) }},
	}
}
