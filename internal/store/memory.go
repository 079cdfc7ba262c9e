package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store and TenantStore used by tests and by the
// server when no DATABASE_URL is configured.
type Memory struct {
	mu          sync.RWMutex
	leads       map[string]*Lead
	deployments map[string]*Deployment
	tenants     map[uuid.UUID]*Tenant
	keyHashes   map[string]uuid.UUID
	now         func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		leads:       make(map[string]*Lead),
		deployments: make(map[string]*Deployment),
		tenants:     make(map[uuid.UUID]*Tenant),
		keyHashes:   make(map[string]uuid.UUID),
		now:         time.Now,
	}
}

func copyLead(l *Lead) *Lead {
	c := *l
	return &c
}

func copyDeployment(d *Deployment) *Deployment {
	c := *d
	return &c
}

func (m *Memory) CreateLead(_ context.Context, lead *Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	lead.CreatedAt = m.now()
	lead.UpdatedAt = lead.CreatedAt
	if lead.Status == "" {
		lead.Status = LeadStatusNew
	}
	m.leads[lead.ID] = copyLead(lead)
	return nil
}

func (m *Memory) GetLead(_ context.Context, id string) (*Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLead(l), nil
}

func (m *Memory) ListLeads(_ context.Context) ([]*Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, copyLead(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateLead(_ context.Context, lead *Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	lead.CreatedAt = existing.CreatedAt
	lead.UpdatedAt = m.now()
	m.leads[lead.ID] = copyLead(lead)
	return nil
}

func (m *Memory) DeleteLead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *Memory) CreateDeployment(_ context.Context, d *Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = m.now()
	m.deployments[d.ID] = copyDeployment(d)
	return nil
}

func (m *Memory) GetDeployment(_ context.Context, id string) (*Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDeployment(d), nil
}

func (m *Memory) ListDeployments(_ context.Context) ([]*Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		out = append(out, copyDeployment(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteDeployment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deployments[id]; !ok {
		return ErrNotFound
	}
	delete(m.deployments, id)
	return nil
}

// Ping always succeeds; the memory store has no backing connection.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) CreateTenant(_ context.Context, tenant *Tenant, hashedKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenant.CreatedAt = m.now()
	c := *tenant
	m.tenants[tenant.ID] = &c
	m.keyHashes[hashedKey] = tenant.ID
	return nil
}

func (m *Memory) GetTenantByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *Memory) GetTenantByAPIKeyHash(_ context.Context, hash string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.keyHashes[hash]
	if !ok {
		return nil, ErrNotFound
	}
	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}
