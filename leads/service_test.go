package leads_test

import (
	"context"
	"sync"
	"testing"

	"github.com/adeilh/digitally/leads"
	"github.com/adeilh/digitally/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingAlerter struct {
	mu   sync.Mutex
	seen []leads.Lead
}

func (r *recordingAlerter) LeadCaptured(ctx context.Context, l leads.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, l)
}

func (r *recordingAlerter) leads() []leads.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]leads.Lead(nil), r.seen...)
}

func TestContactStoresAndAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	alerts := &recordingAlerter{}
	svc := leads.NewService(memory.NewLeads(), alerts, nil)

	lead, err := svc.Contact(ctx, leads.ContactRequest{
		Name:    " Ada ",
		Email:   "ada@example.com",
		Service: "Web Development",
		Budget:  "$5k",
		Message: "Need a site",
	})
	require.NoError(t, err)
	cancel()
	svc.Wait()

	assert.Equal(t, "Ada", lead.Name)
	assert.Equal(t, leads.TypeContact, lead.Type)
	assert.Equal(t, leads.StatusNew, lead.Status)

	got := alerts.leads()
	require.Len(t, got, 1, "alert runs even after the request context ends")
	assert.Equal(t, lead.ID, got[0].ID)
}

func TestContactValidation(t *testing.T) {
	svc := leads.NewService(memory.NewLeads(), nil, nil)
	for _, req := range []leads.ContactRequest{
		{Email: "a@b.co", Message: "hi"},
		{Name: "A", Message: "hi"},
		{Name: "A", Email: "a@b.co"},
		{Name: "A", Email: "nope", Message: "hi"},
	} {
		_, err := svc.Contact(context.Background(), req)
		assert.ErrorIs(t, err, leads.ErrInvalidLead, "%+v", req)
	}
}

func TestUpdateStatusAndStats(t *testing.T) {
	ctx := context.Background()
	svc := leads.NewService(memory.NewLeads(), nil, nil)

	lead, err := svc.Contact(ctx, leads.ContactRequest{Name: "A", Email: "a@b.co", Message: "hi"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, lead.ID, leads.Status("won"))
	assert.ErrorIs(t, err, leads.ErrInvalidStatus)

	updated, err := svc.UpdateStatus(ctx, lead.ID, leads.StatusContacted)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusContacted, updated.Status)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalLeads)
	assert.Equal(t, 0, st.NewLeads)
	assert.Equal(t, 1, st.ByType[leads.TypeContact])

	list, err := svc.List(ctx, leads.Filter{Status: leads.StatusContacted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
