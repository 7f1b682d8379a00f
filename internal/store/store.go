// Package store persists captured leads.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sinergia/leadquote/internal/model"
)

// ErrNotFound is returned when a lead id does not exist.
var ErrNotFound = eris.New("store: lead not found")

// DefaultListLimit caps ListLeads when the filter sets no limit.
const DefaultListLimit = 100

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status   model.LeadStatus `json:"status,omitempty"`
	Eligible *bool            `json:"eligible,omitempty"`
	Since    time.Time        `json:"since,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

func (f LeadFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f LeadFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Store defines the persistence interface for captured leads.
type Store interface {
	SaveLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	// ListLeads returns leads newest first.
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
	// ImportLeads inserts or replaces leads by id and returns how many were written.
	ImportLeads(ctx context.Context, leads []model.Lead) (int64, error)
	Stats(ctx context.Context) (model.LeadStats, error)
	DeleteAll(ctx context.Context) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// leadColumns is the column order shared by every SQL backend.
var leadColumns = []string{
	"id", "created_at", "name", "email", "whatsapp", "state_id",
	"distributor_id", "eligible", "outcome", "status", "origin", "quote",
}

// leadRow flattens a lead into leadColumns order.
func leadRow(l *model.Lead) ([]any, error) {
	quote, err := json.Marshal(l.Quote)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal quote of %s", l.ID)
	}
	return []any{
		l.ID, l.Timestamp.UTC(), l.Personal.Name, l.Personal.Email, l.Personal.WhatsApp, l.StateID,
		l.DistributorID, l.Quote.Eligible, string(l.Quote.Outcome), string(l.Status), l.Origin, quote,
	}, nil
}

func validateLead(l *model.Lead) error {
	if l == nil || l.ID == "" {
		return eris.New("store: lead id is required")
	}
	if !l.Status.Valid() {
		return eris.Errorf("store: invalid lead status %q", l.Status)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanLead reads one row selected in leadColumns order.
func scanLead(row scannable) (*model.Lead, error) {
	var (
		l        model.Lead
		eligible bool
		outcome  string
		status   string
		quote    []byte
	)
	err := row.Scan(&l.ID, &l.Timestamp, &l.Personal.Name, &l.Personal.Email, &l.Personal.WhatsApp,
		&l.StateID, &l.DistributorID, &eligible, &outcome, &status, &l.Origin, &quote)
	if err != nil {
		return nil, err
	}
	if len(quote) > 0 {
		if err := json.Unmarshal(quote, &l.Quote); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal quote of %s", l.ID)
		}
	}
	l.Status = model.LeadStatus(status)
	l.Timestamp = l.Timestamp.UTC()
	return &l, nil
}
