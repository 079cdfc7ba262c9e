package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

func TestMemoryLeadLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	lead := &Lead{BusinessName: "acme", URL: "https://acme.example.com"}
	require.NoError(t, m.CreateLead(ctx, lead))
	require.NotEmpty(t, lead.ID)
	assert.Equal(t, LeadStatusNew, lead.Status)

	lead.Email = "owner@acme.example.com"
	require.NoError(t, m.UpdateLead(ctx, lead))

	got, err := m.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.example.com", got.Email)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	require.NoError(t, m.DeleteLead(ctx, lead.ID))
	_, err = m.GetLead(ctx, lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUnknownRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetLead(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.UpdateLead(ctx, &Lead{ID: "nope"}), ErrNotFound)
	assert.ErrorIs(t, m.DeleteLead(ctx, "nope"), ErrNotFound)
	_, err = m.GetDeployment(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTenantByKeyHash(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tenant := &Tenant{ID: mustUUID(t), Name: "acme", PlanID: "starter"}
	require.NoError(t, m.CreateTenant(ctx, tenant, "hash-1"))

	got, err := m.GetTenantByAPIKeyHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = m.GetTenantByAPIKeyHash(ctx, "hash-2")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := m.GetTenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "starter", byID.PlanID)
}
