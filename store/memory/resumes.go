package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/adeilh/digitally/resumes"
)

// Resumes is an in-memory resumes.Store.
type Resumes struct {
	mu    sync.RWMutex
	items map[string]resumes.Resume
	opts  options
}

var _ resumes.Store = (*Resumes)(nil)

func NewResumes(opts ...Option) *Resumes {
	return &Resumes{items: make(map[string]resumes.Resume), opts: apply(opts)}
}

func (s *Resumes) Create(_ context.Context, r resumes.Resume) (resumes.Resume, error) {
	now := s.opts.now()
	r.ID = newID()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Analysis = cloneAnalysis(r.Analysis)

	s.mu.Lock()
	s.items[r.ID] = r
	s.mu.Unlock()
	return r, nil
}

func (s *Resumes) Get(_ context.Context, id string) (resumes.Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return resumes.Resume{}, resumes.ErrNotFound
	}
	r.Analysis = cloneAnalysis(r.Analysis)
	return r, nil
}

func (s *Resumes) Update(_ context.Context, r resumes.Resume) (resumes.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[r.ID]
	if !ok {
		return resumes.Resume{}, resumes.ErrNotFound
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = s.opts.now()
	r.Analysis = cloneAnalysis(r.Analysis)
	s.items[r.ID] = r
	return r, nil
}

func (s *Resumes) List(_ context.Context, f resumes.Filter) ([]resumes.Resume, error) {
	if f.Empty() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []resumes.Resume
	for _, r := range s.items {
		if (f.UserID != "" && r.UserID == f.UserID) || slices.Contains(f.IDs, r.ID) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b resumes.Resume) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func cloneAnalysis(a *resumes.Analysis) *resumes.Analysis {
	if a == nil {
		return nil
	}
	c := *a
	c.TopSkills = slices.Clone(a.TopSkills)
	c.MissingKeywords = slices.Clone(a.MissingKeywords)
	c.CriticalIssues = slices.Clone(a.CriticalIssues)
	c.ImprovementPlan = slices.Clone(a.ImprovementPlan)
	return &c
}
