package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/veriscope/veriscope/internal/models"
)

// CaseStore persists forensic cases in PostgreSQL.
type CaseStore struct {
	db *DB
}

// NewCaseStore creates a new case store.
func NewCaseStore(db *DB) *CaseStore {
	return &CaseStore{db: db}
}

// Create inserts a new case owned by ownerUserID.
func (s *CaseStore) Create(ctx context.Context, ownerUserID string, params models.CreateCaseParams) (*models.Case, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, fmt.Errorf("owner user id is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("case title is required")
	}

	query := `
		INSERT INTO cases (owner_user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, owner_user_id, title, description, status, created_at, updated_at
	`

	return s.scanCase(s.db.QueryRowContext(ctx, query, ownerUserID, params.Title, params.Description))
}

// GetByID retrieves one case, or nil when it does not exist.
func (s *CaseStore) GetByID(ctx context.Context, caseID string) (*models.Case, error) {
	query := `
		SELECT c.id, c.owner_user_id, c.title, c.description, c.status, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM media_files m WHERE m.case_id = c.id) AS media_count
		FROM cases c
		WHERE c.id = $1
	`

	var c models.Case
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, query, caseID).Scan(
		&c.ID, &c.OwnerUserID, &c.Title, &description, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.MediaCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	c.Description = description.String

	return &c, nil
}

// ListByOwner returns the owner's cases, newest first.
func (s *CaseStore) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]models.Case, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT c.id, c.owner_user_id, c.title, c.description, c.status, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM media_files m WHERE m.case_id = c.id) AS media_count
		FROM cases c
		WHERE c.owner_user_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, ownerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	cases := []models.Case{}
	for rows.Next() {
		var c models.Case
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.OwnerUserID, &c.Title, &description, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.MediaCount); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.Description = description.String
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// UpdateStatus moves a case between open/closed/archived.
func (s *CaseStore) UpdateStatus(ctx context.Context, caseID string, status models.CaseStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cases SET status = $2, updated_at = NOW() WHERE id = $1`,
		caseID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("case %s not found", caseID)
	}

	return nil
}

// Delete removes a case. Media rows and analysis results cascade.
func (s *CaseStore) Delete(ctx context.Context, caseID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, caseID); err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	return nil
}

func (s *CaseStore) scanCase(row *sql.Row) (*models.Case, error) {
	var c models.Case
	var description sql.NullString
	err := row.Scan(&c.ID, &c.OwnerUserID, &c.Title, &description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.Description = description.String
	return &c, nil
}
