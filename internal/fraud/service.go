package fraud

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
	"github.com/odyssey-erp/marketdesk/internal/screen"
)

// API is the part of the marketplace client the fraud screen uses.
type API interface {
	List(ctx context.Context, resource string, out any) error
	Patch(ctx context.Context, resource, id string, body, out any) error
	Action(ctx context.Context, resource, id, action string, body, out any) error
}

var validate = mutation.NewValidator()

// Service holds one session's fraud screen and its write operations.
type Service struct {
	api    API
	screen *screen.Screen[Case]
}

// NewService wires a fraud screen over api.
func NewService(api API, opts screen.Options) *Service {
	svc := &Service{api: api}
	svc.screen = screen.New(screen.Config[Case]{
		Name:        "fraud",
		Title:       "Kasus Penipuan",
		Schema:      Schema(),
		Columns:     Columns(),
		Load:        svc.load,
		DefaultSort: listview.SortState{Key: "reported_at", Direction: listview.Desc},
		Formatter:   opts.Formatter,
		Logger:      opts.Logger,
		Mutation:    opts.Mutation,
	})
	return svc
}

// Screen exposes the list screen.
func (s *Service) Screen() *screen.Screen[Case] { return s.screen }

func (s *Service) load(ctx context.Context) ([]Case, error) {
	var cases []Case
	if err := s.api.List(ctx, Resource, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// UpdateStatus moves a case to another review status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*mutation.Ticket[Case], error) {
	return s.screen.Update(ctx, mutation.Update[Case]{
		RecordID: id,
		Label:    "status",
		Apply: func(c Case) (Case, error) {
			c.Status = status
			return c, nil
		},
		Write: func(ctx context.Context, next Case) (Case, error) {
			var out Case
			err := s.api.Patch(ctx, Resource, id, map[string]Status{"status": next.Status}, &out)
			return out, err
		},
		Success: "Status kasus diperbarui menjadi " + statusLabels[string(status)],
	})
}

// UpdateNotes replaces the reviewer notes of a case.
func (s *Service) UpdateNotes(ctx context.Context, id, notes string) (*mutation.Ticket[Case], error) {
	notes = strings.TrimSpace(notes)
	return s.screen.Update(ctx, mutation.Update[Case]{
		RecordID: id,
		Label:    "notes",
		Apply: func(c Case) (Case, error) {
			c.Notes = notes
			return c, nil
		},
		Write: func(ctx context.Context, next Case) (Case, error) {
			var out Case
			err := s.api.Patch(ctx, Resource, id, map[string]string{"notes": next.Notes}, &out)
			return out, err
		},
		Success: "Catatan kasus disimpan",
	})
}

// AttachEvidence appends an evidence item to a case.
func (s *Service) AttachEvidence(ctx context.Context, id string, ev Evidence) (*mutation.Ticket[Case], error) {
	if ev == nil {
		return nil, mutation.Invalid("evidence", "wajib diisi")
	}
	if err := mutation.Check(validate, ev); err != nil {
		return nil, err
	}
	body, err := EncodeEvidence(ev)
	if err != nil {
		return nil, err
	}
	return s.screen.Update(ctx, mutation.Update[Case]{
		RecordID: id,
		Op:       mutation.OpAction,
		Label:    "evidence",
		Apply: func(c Case) (Case, error) {
			c.Evidence = append(slices.Clone(c.Evidence), ev)
			return c, nil
		},
		Write: func(ctx context.Context, _ Case) (Case, error) {
			var out Case
			err := s.api.Action(ctx, Resource, id, "evidence", json.RawMessage(body), &out)
			return out, err
		},
		Success: "Bukti ditambahkan",
	})
}
