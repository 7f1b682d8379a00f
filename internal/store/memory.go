package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sinergia/leadquote/internal/model"
)

// MemoryStore keeps leads in process memory. It backs tests and the
// "memory" driver; nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]model.Lead
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{leads: make(map[string]model.Lead)}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) SaveLead(_ context.Context, lead *model.Lead) error {
	if err := validateLead(lead); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.ID]; ok {
		return eris.Errorf("memory: lead %s already exists", lead.ID)
	}
	l := *lead
	l.Timestamp = l.Timestamp.UTC()
	s.leads[lead.ID] = l
	return nil
}

func (s *MemoryStore) GetLead(_ context.Context, id string) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "memory: get lead %s", id)
	}
	return &l, nil
}

func (s *MemoryStore) ListLeads(_ context.Context, filter LeadFilter) ([]model.Lead, error) {
	s.mu.RLock()
	var matched []model.Lead
	for _, l := range s.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Eligible != nil && l.Quote.Eligible != *filter.Eligible {
			continue
		}
		if !filter.Since.IsZero() && l.Timestamp.Before(filter.Since) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	offset := filter.offset()
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit := filter.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) UpdateLeadStatus(_ context.Context, id string, status model.LeadStatus) error {
	if !status.Valid() {
		return eris.Errorf("memory: invalid lead status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "memory: update lead status %s", id)
	}
	l.Status = status
	s.leads[id] = l
	return nil
}

func (s *MemoryStore) ImportLeads(_ context.Context, leads []model.Lead) (int64, error) {
	for i := range leads {
		if err := validateLead(&leads[i]); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range leads {
		l.Timestamp = l.Timestamp.UTC()
		s.leads[l.ID] = l
	}
	return int64(len(leads)), nil
}

func (s *MemoryStore) Stats(context.Context) (model.LeadStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.LeadStats
	for _, l := range s.leads {
		st.Total++
		if l.Quote.Eligible {
			st.Eligible++
		}
	}
	st.NotEligible = st.Total - st.Eligible
	return st, nil
}

func (s *MemoryStore) DeleteAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.leads))
	s.leads = make(map[string]model.Lead)
	return n, nil
}
