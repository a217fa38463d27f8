package orders

import (
	"context"
	"strings"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// API is the part of the marketplace client the order screen uses.
type API interface {
	List(ctx context.Context, resource string, out any) error
	Put(ctx context.Context, resource, id string, body, out any) error
	Patch(ctx context.Context, resource, id string, body, out any) error
	Action(ctx context.Context, resource, id, action string, body, out any) error
}

// Service holds one session's order screen and its write operations.
type Service struct {
	api    API
	screen *screen.Screen[Order]
}

// NewService wires an order screen over api.
func NewService(api API, opts screen.Options) *Service {
	svc := &Service{api: api}
	svc.screen = screen.New(screen.Config[Order]{
		Name:        "orders",
		Title:       "Daftar Pesanan",
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
func (s *Service) Screen() *screen.Screen[Order] { return s.screen }

func (s *Service) load(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.api.List(ctx, Resource, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type statusChange struct {
	Status         Status `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// UpdateStatus advances an order along its fulfilment flow. Only paid orders
// enter fulfilment, and shipping an order requires its tracking number.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, tracking string) (*mutation.Ticket[Order], error) {
	tracking = strings.TrimSpace(tracking)
	return s.screen.Update(ctx, mutation.Update[Order]{
		RecordID: id,
		Label:    "status",
		Apply: func(o Order) (Order, error) {
			if err := checkTransition(o.Status, status); err != nil {
				return o, err
			}
			if (status == StatusProcessed || status == StatusShipped) && o.Payment != PaymentPaid {
				return o, mutation.Invalid("status", "pesanan belum dibayar")
			}
			o.Status = status
			if tracking != "" {
				o.TrackingNumber = tracking
			}
			return o, nil
		},
		Write: func(ctx context.Context, next Order) (Order, error) {
			var out Order
			err := s.api.Put(ctx, Resource, id, statusChange{Status: next.Status, TrackingNumber: tracking}, &out)
			return out, err
		},
		Success: "Status pesanan diperbarui menjadi " + statusLabel(status),
	})
}

// SetTracking records the courier tracking number of an order in fulfilment.
func (s *Service) SetTracking(ctx context.Context, id, tracking string) (*mutation.Ticket[Order], error) {
	tracking = strings.TrimSpace(tracking)
	return s.screen.Update(ctx, mutation.Update[Order]{
		RecordID: id,
		Label:    "tracking_number",
		Apply: func(o Order) (Order, error) {
			if o.Status != StatusProcessed && o.Status != StatusShipped {
				return o, mutation.Invalid("tracking_number", "hanya untuk pesanan yang diproses atau dikirim")
			}
			if tracking == "" {
				return o, mutation.Invalid("tracking_number", "wajib diisi")
			}
			o.TrackingNumber = tracking
			return o, nil
		},
		Write: func(ctx context.Context, next Order) (Order, error) {
			var out Order
			err := s.api.Patch(ctx, Resource, id, map[string]string{"tracking_number": next.TrackingNumber}, &out)
			return out, err
		},
		Success: "Nomor resi disimpan",
	})
}

// ConfirmPayment marks an unpaid pending order as paid.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (*mutation.Ticket[Order], error) {
	return s.screen.Update(ctx, mutation.Update[Order]{
		RecordID: id,
		Op:       mutation.OpAction,
		Label:    "confirm-payment",
		Apply: func(o Order) (Order, error) {
			if o.Status != StatusPending || o.Payment != PaymentUnpaid {
				return o, mutation.Invalid("payment_status", "pembayaran tidak dapat dikonfirmasi")
			}
			o.Payment = PaymentPaid
			return o, nil
		},
		Write: func(ctx context.Context, _ Order) (Order, error) {
			var out Order
			err := s.api.Action(ctx, Resource, id, "confirm-payment", nil, &out)
			return out, err
		},
		Success: "Pembayaran dikonfirmasi",
	})
}
