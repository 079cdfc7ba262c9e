package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dizid/site-improver/internal/store"
	"github.com/google/uuid"
)

const deploymentColumns = "id, tenant_id, lead_id, job_id, url, deployed_url, status, error_message, created_at"

func scanDeployment(row interface{ Scan(...any) error }) (*store.Deployment, error) {
	var d store.Deployment
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.LeadID,
		&d.JobID,
		&d.URL,
		&d.DeployedURL,
		&d.Status,
		&d.ErrorMessage,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDeployment(ctx context.Context, d *store.Deployment) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO deployments (id, tenant_id, lead_id, job_id, url, deployed_url, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID,
		d.TenantID,
		d.LeadID,
		d.JobID,
		d.URL,
		d.DeployedURL,
		d.Status,
		d.ErrorMessage,
		d.CreatedAt,
	)
	return err
}

func (s *Store) GetDeployment(ctx context.Context, id string) (*store.Deployment, error) {
	query := "SELECT " + deploymentColumns + " FROM deployments WHERE id = $1"

	d, err := scanDeployment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) DeleteDeployment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM deployments WHERE id = $1", id)
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

func (s *Store) ListDeployments(ctx context.Context) ([]*store.Deployment, error) {
	query := "SELECT " + deploymentColumns + " FROM deployments ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*store.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}
