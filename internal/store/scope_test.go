package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLead(t *testing.T, m *Memory, tenantID, name string) *Lead {
	t.Helper()
	// Create through the raw store so the tenant stamp is preserved as given.
	l := &Lead{TenantID: tenantID, BusinessName: name, URL: "https://" + name + ".example.com"}
	require.NoError(t, m.CreateLead(context.Background(), l))
	return l
}

func TestScopedCreateStampsTenant(t *testing.T) {
	m := NewMemory()
	s := NewScoped(m, "tenant-a")

	lead := &Lead{BusinessName: "Joes Plumbing", URL: "https://joes.example.com"}
	require.NoError(t, s.CreateLead(context.Background(), lead))

	stored, err := m.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", stored.TenantID)
}

func TestScopedGetOtherTenantIsNotFound(t *testing.T) {
	m := NewMemory()
	lead := seedLead(t, m, "tenant-b", "acme")

	s := NewScoped(m, "tenant-a")
	_, err := s.GetLead(context.Background(), lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScopedLegacyRowsVisibleToAll(t *testing.T) {
	m := NewMemory()
	legacy := seedLead(t, m, "", "oldco")

	for _, tenant := range []string{"tenant-a", "tenant-b"} {
		s := NewScoped(m, tenant)
		got, err := s.GetLead(context.Background(), legacy.ID)
		require.NoError(t, err)
		assert.Equal(t, "oldco", got.BusinessName)
	}
}

func TestScopedListFilters(t *testing.T) {
	m := NewMemory()
	seedLead(t, m, "tenant-a", "mine")
	seedLead(t, m, "tenant-b", "theirs")
	seedLead(t, m, "", "shared")

	s := NewScoped(m, "tenant-a")
	leads, err := s.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)

	names := []string{leads[0].BusinessName, leads[1].BusinessName}
	assert.ElementsMatch(t, []string{"mine", "shared"}, names)
}

func TestScopedUpdatePreservesOwner(t *testing.T) {
	m := NewMemory()
	lead := seedLead(t, m, "tenant-a", "mine")

	s := NewScoped(m, "tenant-a")
	lead.Status = LeadStatusContacted
	lead.TenantID = "tenant-b" // must not take effect
	require.NoError(t, s.UpdateLead(context.Background(), lead))

	stored, err := m.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", stored.TenantID)
	assert.Equal(t, LeadStatusContacted, stored.Status)
}

func TestScopedDeleteOtherTenantIsNotFound(t *testing.T) {
	m := NewMemory()
	lead := seedLead(t, m, "tenant-b", "theirs")

	s := NewScoped(m, "tenant-a")
	assert.ErrorIs(t, s.DeleteLead(context.Background(), lead.ID), ErrNotFound)

	// Row untouched.
	_, err := m.GetLead(context.Background(), lead.ID)
	assert.NoError(t, err)
}

func TestScopedLeadStats(t *testing.T) {
	m := NewMemory()
	a := seedLead(t, m, "tenant-a", "one")
	seedLead(t, m, "tenant-a", "two")
	seedLead(t, m, "tenant-b", "other")

	s := NewScoped(m, "tenant-a")
	a.Status = LeadStatusConverted
	require.NoError(t, s.UpdateLead(context.Background(), a))

	total, byStatus, err := s.LeadStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, map[string]int{"new": 1, "converted": 1}, byStatus)
}

func TestScopedDeployments(t *testing.T) {
	m := NewMemory()
	s := NewScoped(m, "tenant-a")

	d := &Deployment{LeadID: "lead-1", JobID: "job-1", DeployedURL: "https://site.pages.dev", Status: DeploymentStatusDeployed}
	require.NoError(t, s.CreateDeployment(context.Background(), d))

	other := NewScoped(m, "tenant-b")
	_, err := other.GetDeployment(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := other.ListDeployments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.GetDeployment(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://site.pages.dev", got.DeployedURL)
}

func TestTenantContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TenantIDFromContext(ctx))

	tenant := &Tenant{Name: "acme"}
	tenant.ID = mustUUID(t)
	ctx = WithTenant(ctx, tenant)

	got, ok := TenantFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, tenant.ID, got.ID)
	assert.Equal(t, tenant.ID.String(), TenantIDFromContext(ctx))
}
