package vouchers

import (
	"context"
	"strings"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// API is the part of the marketplace client the voucher screen uses.
type API interface {
	List(ctx context.Context, resource string, out any) error
	Create(ctx context.Context, resource string, body, out any) error
	Put(ctx context.Context, resource, id string, body, out any) error
	Patch(ctx context.Context, resource, id string, body, out any) error
	Delete(ctx context.Context, resource, id string) error
}

// Service holds one session's voucher screen and its write operations.
type Service struct {
	api    API
	screen *screen.Screen[Voucher]
}

// NewService wires a voucher screen over api.
func NewService(api API, opts screen.Options) *Service {
	svc := &Service{api: api}
	svc.screen = screen.New(screen.Config[Voucher]{
		Name:        "vouchers",
		Title:       "Daftar Voucher",
		Schema:      Schema(),
		Columns:     Columns(),
		Load:        svc.load,
		DefaultSort: listview.SortState{Key: "valid_until", Direction: listview.Asc},
		Formatter:   opts.Formatter,
		Logger:      opts.Logger,
		Mutation:    opts.Mutation,
	})
	return svc
}

// Screen exposes the list screen.
func (s *Service) Screen() *screen.Screen[Voucher] { return s.screen }

func (s *Service) load(ctx context.Context) ([]Voucher, error) {
	var vouchers []Voucher
	if err := s.api.List(ctx, Resource, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

// codeTaken reports whether another voucher already uses code.
func (s *Service) codeTaken(code, exceptID string) bool {
	for _, v := range s.screen.Mutations().Store().Snapshot() {
		if v.ID != exceptID && strings.EqualFold(v.Code, code) {
			return true
		}
	}
	return false
}

// Create adds a voucher. It is shown as active under a provisional id until
// the marketplace assigns the real one.
func (s *Service) Create(ctx context.Context, in Input) (*mutation.Ticket[Voucher], error) {
	in = in.normalize()
	if s.codeTaken(in.Code, "") {
		return nil, mutation.Invalid("code", "sudah digunakan")
	}
	build := func(id string) Voucher {
		return in.apply(Voucher{ID: id, Status: StatusActive})
	}
	if err := checkRules(build("draft")); err != nil {
		return nil, err
	}
	return s.screen.Create(ctx, mutation.Create[Voucher]{
		Label: "create",
		Build: build,
		Write: func(ctx context.Context, _ Voucher) (Voucher, error) {
			var out Voucher
			err := s.api.Create(ctx, Resource, in, &out)
			return out, err
		},
		Success: "Voucher " + in.Code + " berhasil dibuat",
	})
}

// Update replaces the editable fields of a voucher.
func (s *Service) Update(ctx context.Context, id string, in Input) (*mutation.Ticket[Voucher], error) {
	in = in.normalize()
	if s.codeTaken(in.Code, id) {
		return nil, mutation.Invalid("code", "sudah digunakan")
	}
	return s.screen.Update(ctx, mutation.Update[Voucher]{
		RecordID: id,
		Label:    "update",
		Apply: func(v Voucher) (Voucher, error) {
			next := in.apply(v)
			return next, checkRules(next)
		},
		Write: func(ctx context.Context, _ Voucher) (Voucher, error) {
			var out Voucher
			err := s.api.Put(ctx, Resource, id, in, &out)
			return out, err
		},
		Success: "Voucher diperbarui",
	})
}

// Toggle switches a voucher between active and inactive. Expired vouchers
// cannot be reactivated.
func (s *Service) Toggle(ctx context.Context, id string) (*mutation.Ticket[Voucher], error) {
	var target Status
	return s.screen.Update(ctx, mutation.Update[Voucher]{
		RecordID: id,
		Label:    "toggle",
		Apply: func(v Voucher) (Voucher, error) {
			switch v.Status {
			case StatusActive:
				target = StatusInactive
			case StatusInactive:
				target = StatusActive
			default:
				return v, mutation.Invalid("status", "voucher kedaluwarsa tidak dapat diaktifkan")
			}
			v.Status = target
			return v, nil
		},
		Write: func(ctx context.Context, next Voucher) (Voucher, error) {
			var out Voucher
			err := s.api.Patch(ctx, Resource, id, map[string]Status{"status": next.Status}, &out)
			return out, err
		},
		Success: "Status voucher diperbarui",
	})
}

// Delete removes a voucher.
func (s *Service) Delete(ctx context.Context, id string) (*mutation.Ticket[Voucher], error) {
	return s.screen.Delete(ctx, mutation.Delete[Voucher]{
		RecordID: id,
		Label:    "delete",
		Write: func(ctx context.Context, _ Voucher) error {
			return s.api.Delete(ctx, Resource, id)
		},
		Success: "Voucher dihapus",
	})
}
