package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dizid/site-improver/internal/store"
	"github.com/google/uuid"
)

func scanLead(row interface{ Scan(...any) error }) (*store.Lead, error) {
	var l store.Lead
	err := row.Scan(
		&l.ID,
		&l.TenantID,
		&l.BusinessName,
		&l.URL,
		&l.Email,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const leadColumns = "id, tenant_id, business_name, url, email, status, created_at, updated_at"

func (s *Store) CreateLead(ctx context.Context, lead *store.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = store.LeadStatusNew
	}

	query := `
		INSERT INTO leads (id, tenant_id, business_name, url, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		lead.ID,
		lead.TenantID,
		lead.BusinessName,
		lead.URL,
		lead.Email,
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return err
}

func (s *Store) GetLead(ctx context.Context, id string) (*store.Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads WHERE id = $1"

	l, err := scanLead(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) ListLeads(ctx context.Context) ([]*store.Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*store.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (s *Store) UpdateLead(ctx context.Context, lead *store.Lead) error {
	lead.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE leads
		SET business_name = $2, url = $3, email = $4, status = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		lead.ID,
		lead.BusinessName,
		lead.URL,
		lead.Email,
		lead.Status,
		lead.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM leads WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
