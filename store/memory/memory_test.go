package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/resumes"
	"github.com/adeilh/digitally/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestLeadsFindRecent(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{t: time.Unix(1_700_000_000, 0)}
	s := NewLeads(WithClock(clock.Now))

	old, err := s.Create(ctx, leads.Lead{Type: leads.TypeRoast, Fingerprint: "roast-a", Details: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)
	newer, err := s.Create(ctx, leads.Lead{Type: leads.TypeRoast, Fingerprint: "roast-a", Details: json.RawMessage(`{"n":2}`)})
	require.NoError(t, err)
	_, err = s.Create(ctx, leads.Lead{Type: leads.TypeQualify, Fingerprint: "roast-a"})
	require.NoError(t, err)

	got, err := s.FindRecent(ctx, leads.Criteria{Type: leads.TypeRoast, Fingerprint: "roast-a"}, old.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, leads.StatusNew, got.Status)

	_, err = s.FindRecent(ctx, leads.Criteria{Type: leads.TypeRoast, Fingerprint: "roast-a"}, newer.CreatedAt.Add(time.Second))
	assert.ErrorIs(t, err, leads.ErrNotFound)

	_, err = s.FindRecent(ctx, leads.Criteria{Type: leads.TypeRoast, Fingerprint: "roast-b"}, time.Time{})
	assert.ErrorIs(t, err, leads.ErrNotFound)
}

func TestLeadsListAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewLeads()
	for _, typ := range []leads.Type{leads.TypeContact, leads.TypeRoast, leads.TypeRoast, leads.TypeQualify} {
		_, err := s.Create(ctx, leads.Lead{Type: typ})
		require.NoError(t, err)
	}
	all, err := s.List(ctx, leads.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, leads.TypeQualify, all[0].Type, "newest first")

	_, err = s.UpdateStatus(ctx, all[0].ID, leads.StatusClosed)
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, "missing", leads.StatusClosed)
	assert.ErrorIs(t, err, leads.ErrNotFound)

	roasts, err := s.List(ctx, leads.Filter{Type: leads.TypeRoast, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, roasts, 1)

	st, err := s.Stats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalLeads)
	assert.Equal(t, 3, st.NewLeads)
	assert.Equal(t, 2, st.ByType[leads.TypeRoast])
	assert.Len(t, st.RecentLeads, 2)
}

func TestUsersUniqueEmailAndCredits(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()

	u, err := s.Create(ctx, users.User{Email: "a@b.co", Plan: users.PlanFree, Credits: 1})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = s.Create(ctx, users.User{Email: "a@b.co"})
	assert.ErrorIs(t, err, users.ErrEmailInUse)

	got, err := s.GetByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.AdjustCredits(ctx, u.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Credits)

	got, err = s.AdjustCredits(ctx, u.ID, -5)
	require.NoError(t, err)
	got, err = s.SpendCredit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Credits)
	_, err = s.SpendCredit(ctx, u.ID)
	assert.ErrorIs(t, err, users.ErrNoCredits)
	_, err = s.SpendCredit(ctx, "missing")
	assert.ErrorIs(t, err, users.ErrNotFound)

	got.Plan = users.PlanPro
	got, err = s.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, users.PlanPro, got.Plan)
	assert.Equal(t, u.CreatedAt, got.CreatedAt)

	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestResumesListMatchesEitherCondition(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{t: time.Unix(1_700_000_000, 0)}
	s := NewResumes(WithClock(clock.Now))

	mine, err := s.Create(ctx, resumes.Resume{UserID: "u1", OriginalName: "mine.pdf"})
	require.NoError(t, err)
	guest, err := s.Create(ctx, resumes.Resume{OriginalName: "guest.pdf"})
	require.NoError(t, err)
	_, err = s.Create(ctx, resumes.Resume{UserID: "u2", OriginalName: "other.pdf"})
	require.NoError(t, err)

	got, err := s.List(ctx, resumes.Filter{UserID: "u1", IDs: []string{guest.ID}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, guest.ID, got[0].ID)
	assert.Equal(t, mine.ID, got[1].ID)

	none, err := s.List(ctx, resumes.Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResumesUpdateIsolatesAnalysis(t *testing.T) {
	ctx := context.Background()
	s := NewResumes()
	r, err := s.Create(ctx, resumes.Resume{OriginalName: "cv.pdf"})
	require.NoError(t, err)

	r.Analysis = &resumes.Analysis{Score: 50, TopSkills: []string{"go"}}
	_, err = s.Update(ctx, r)
	require.NoError(t, err)
	r.Analysis.TopSkills[0] = "mutated"

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, got.Analysis.TopSkills)

	_, err = s.Update(ctx, resumes.Resume{ID: "missing"})
	assert.ErrorIs(t, err, resumes.ErrNotFound)
}
