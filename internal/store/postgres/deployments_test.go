package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dizid/site-improver/internal/store"
)

func TestCreateDeployment_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	d := &store.Deployment{
		TenantID:    "tenant-1",
		LeadID:      "lead-1",
		JobID:       "job-1",
		URL:         "https://oldsite.example.com",
		DeployedURL: "https://newsite.pages.dev",
		Status:      store.DeploymentStatusDeployed,
	}

	mock.ExpectExec(`INSERT INTO deployments`).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "lead-1", "job-1", "https://oldsite.example.com", "https://newsite.pages.dev", store.DeploymentStatusDeployed, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateDeployment(context.Background(), d); err != nil {
		t.Fatalf("CreateDeployment failed: %v", err)
	}
	if d.ID == "" {
		t.Error("expected generated deployment ID")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetDeployment_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT id, tenant_id, lead_id, job_id, url, deployed_url, status, error_message, created_at FROM deployments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "lead_id", "job_id", "url", "deployed_url", "status", "error_message", "created_at"}))

	_, err := s.GetDeployment(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListDeployments_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, tenant_id, lead_id, job_id, url, deployed_url, status, error_message, created_at FROM deployments ORDER BY created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "lead_id", "job_id", "url", "deployed_url", "status", "error_message", "created_at"}).
			AddRow("dep-1", "tenant-1", "lead-1", "job-1", "https://a.example.com", "https://a.pages.dev", "deployed", "", now).
			AddRow("dep-2", "tenant-1", "lead-2", "job-2", "https://b.example.com", "", "failed", "deploy timeout", now))

	deployments, err := s.ListDeployments(context.Background())
	if err != nil {
		t.Fatalf("ListDeployments failed: %v", err)
	}
	if len(deployments) != 2 {
		t.Fatalf("got %d deployments, want 2", len(deployments))
	}
	if deployments[1].Status != store.DeploymentStatusFailed {
		t.Errorf("got status %s, want failed", deployments[1].Status)
	}
	if deployments[1].ErrorMessage != "deploy timeout" {
		t.Errorf("got error %q, want deploy timeout", deployments[1].ErrorMessage)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
