package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/adeilh/digitally/leads"
)

// Leads is an in-memory leads.Store.
type Leads struct {
	mu    sync.RWMutex
	items []leads.Lead
	opts  options
}

var _ leads.Store = (*Leads)(nil)

func NewLeads(opts ...Option) *Leads {
	return &Leads{opts: apply(opts)}
}

func (s *Leads) Create(_ context.Context, l leads.Lead) (leads.Lead, error) {
	now := s.opts.now()
	l.ID = newID()
	if l.Status == "" {
		l.Status = leads.StatusNew
	}
	l.CreatedAt, l.UpdatedAt = now, now
	l.Details = slices.Clone(l.Details)

	s.mu.Lock()
	s.items = append(s.items, l)
	s.mu.Unlock()
	return l, nil
}

func (s *Leads) FindRecent(_ context.Context, c leads.Criteria, since time.Time) (leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.items) - 1; i >= 0; i-- {
		l := s.items[i]
		if l.Type == c.Type && l.Fingerprint == c.Fingerprint && !l.CreatedAt.Before(since) {
			return l, nil
		}
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (s *Leads) List(_ context.Context, f leads.Filter) ([]leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.Lead, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		l := s.items[i]
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Leads) UpdateStatus(_ context.Context, id string, status leads.Status) (leads.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			s.items[i].UpdatedAt = s.opts.now()
			return s.items[i], nil
		}
	}
	return leads.Lead{}, leads.ErrNotFound
}

func (s *Leads) Stats(ctx context.Context, recent int) (leads.Stats, error) {
	s.mu.RLock()
	st := leads.Stats{TotalLeads: len(s.items), ByType: make(map[leads.Type]int)}
	for _, l := range s.items {
		if l.Status == leads.StatusNew {
			st.NewLeads++
		}
		st.ByType[l.Type]++
	}
	s.mu.RUnlock()

	latest, err := s.List(ctx, leads.Filter{Limit: recent})
	if err != nil {
		return leads.Stats{}, err
	}
	st.RecentLeads = latest
	return st, nil
}
