package store

import (
	"context"
)

type tenantCtxKey struct{}

// WithTenant stores the authenticated tenant on the context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, t)
}

// TenantFromContext returns the tenant placed on the context by the
// authentication middleware, if any.
func TenantFromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantCtxKey{}).(*Tenant)
	return t, ok
}

// TenantIDFromContext returns the authenticated tenant ID, or "" when the
// request is unauthenticated.
func TenantIDFromContext(ctx context.Context) string {
	if t, ok := TenantFromContext(ctx); ok {
		return t.ID.String()
	}
	return ""
}

// Scoped wraps a raw Store and enforces tenant isolation on every call.
//
// Reads of another tenant's record return ErrNotFound rather than a
// permission error, so the response does not reveal that the record exists.
// Records with an empty TenantID predate scoping and stay visible to all
// tenants, but are never modified to claim them for one.
type Scoped struct {
	raw      Store
	tenantID string
}

// NewScoped returns a Store view restricted to one tenant.
func NewScoped(raw Store, tenantID string) *Scoped {
	return &Scoped{raw: raw, tenantID: tenantID}
}

// ForContext builds a Scoped store for the tenant on ctx.
func ForContext(ctx context.Context, raw Store) *Scoped {
	return NewScoped(raw, TenantIDFromContext(ctx))
}

func (s *Scoped) visibleLead(l *Lead) bool {
	return l.TenantID == "" || l.TenantID == s.tenantID
}

func (s *Scoped) visibleDeployment(d *Deployment) bool {
	return d.TenantID == "" || d.TenantID == s.tenantID
}

// CreateLead stamps the lead with the scope's tenant before persisting.
func (s *Scoped) CreateLead(ctx context.Context, lead *Lead) error {
	lead.TenantID = s.tenantID
	return s.raw.CreateLead(ctx, lead)
}

func (s *Scoped) GetLead(ctx context.Context, id string) (*Lead, error) {
	l, err := s.raw.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visibleLead(l) {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Scoped) ListLeads(ctx context.Context) ([]*Lead, error) {
	all, err := s.raw.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Lead, 0, len(all))
	for _, l := range all {
		if s.visibleLead(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// UpdateLead rejects updates to leads the tenant cannot see. The stored
// TenantID is preserved so an update cannot move a lead between tenants.
func (s *Scoped) UpdateLead(ctx context.Context, lead *Lead) error {
	existing, err := s.GetLead(ctx, lead.ID)
	if err != nil {
		return err
	}
	lead.TenantID = existing.TenantID
	return s.raw.UpdateLead(ctx, lead)
}

func (s *Scoped) DeleteLead(ctx context.Context, id string) error {
	if _, err := s.GetLead(ctx, id); err != nil {
		return err
	}
	return s.raw.DeleteLead(ctx, id)
}

// LeadStats returns lead counts for the tenant, grouped by status.
func (s *Scoped) LeadStats(ctx context.Context) (total int, byStatus map[string]int, err error) {
	leads, err := s.ListLeads(ctx)
	if err != nil {
		return 0, nil, err
	}
	byStatus = make(map[string]int)
	for _, l := range leads {
		byStatus[string(l.Status)]++
	}
	return len(leads), byStatus, nil
}

func (s *Scoped) CreateDeployment(ctx context.Context, d *Deployment) error {
	d.TenantID = s.tenantID
	return s.raw.CreateDeployment(ctx, d)
}

func (s *Scoped) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	d, err := s.raw.GetDeployment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.visibleDeployment(d) {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *Scoped) DeleteDeployment(ctx context.Context, id string) error {
	if _, err := s.GetDeployment(ctx, id); err != nil {
		return err
	}
	return s.raw.DeleteDeployment(ctx, id)
}

func (s *Scoped) ListDeployments(ctx context.Context) ([]*Deployment, error) {
	all, err := s.raw.ListDeployments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Deployment, 0, len(all))
	for _, d := range all {
		if s.visibleDeployment(d) {
			out = append(out, d)
		}
	}
	return out, nil
}
