package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/veriscope/veriscope/internal/models"
)

// MediaStore persists uploaded media file records in PostgreSQL.
type MediaStore struct {
	db *DB
}

// NewMediaStore creates a new media store.
func NewMediaStore(db *DB) *MediaStore {
	return &MediaStore{db: db}
}

// Create inserts a media record and its pending analysis row in one
// transaction, so every media item has exactly one result row from birth.
func (s *MediaStore) Create(ctx context.Context, media *models.MediaFile) (*models.MediaFile, error) {
	if strings.TrimSpace(media.CaseID) == "" {
		return nil, fmt.Errorf("case id is required")
	}
	if strings.TrimSpace(media.FilePath) == "" {
		return nil, fmt.Errorf("file path is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create media: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO media_files (case_id, owner_user_id, file_name, file_path, media_type, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, case_id, owner_user_id, file_name, file_path, media_type, content_type, size_bytes, created_at
	`

	var saved models.MediaFile
	var contentType sql.NullString
	err = tx.QueryRowContext(ctx, query,
		media.CaseID, media.OwnerUserID, media.FileName, media.FilePath,
		string(media.MediaType), media.ContentType, media.SizeBytes,
	).Scan(
		&saved.ID, &saved.CaseID, &saved.OwnerUserID, &saved.FileName, &saved.FilePath,
		&saved.MediaType, &contentType, &saved.SizeBytes, &saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save media file: %w", err)
	}
	saved.ContentType = contentType.String

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analysis_results (media_id, status) VALUES ($1, $2)`,
		saved.ID, string(models.AnalysisPending),
	); err != nil {
		return nil, fmt.Errorf("create pending analysis row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create media: %w", err)
	}

	return &saved, nil
}

// GetByID retrieves one media record, or nil when it does not exist.
func (s *MediaStore) GetByID(ctx context.Context, mediaID string) (*models.MediaFile, error) {
	query := `
		SELECT id, case_id, owner_user_id, file_name, file_path, media_type, content_type, size_bytes, created_at
		FROM media_files
		WHERE id = $1
	`

	var media models.MediaFile
	var contentType sql.NullString
	err := s.db.QueryRowContext(ctx, query, mediaID).Scan(
		&media.ID, &media.CaseID, &media.OwnerUserID, &media.FileName, &media.FilePath,
		&media.MediaType, &contentType, &media.SizeBytes, &media.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media file: %w", err)
	}
	media.ContentType = contentType.String

	return &media, nil
}

// ListByCase returns all media records of a case, oldest first.
func (s *MediaStore) ListByCase(ctx context.Context, caseID string) ([]models.MediaFile, error) {
	query := `
		SELECT id, case_id, owner_user_id, file_name, file_path, media_type, content_type, size_bytes, created_at
		FROM media_files
		WHERE case_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("list media files: %w", err)
	}
	defer rows.Close()

	files := []models.MediaFile{}
	for rows.Next() {
		var media models.MediaFile
		var contentType sql.NullString
		if err := rows.Scan(
			&media.ID, &media.CaseID, &media.OwnerUserID, &media.FileName, &media.FilePath,
			&media.MediaType, &contentType, &media.SizeBytes, &media.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan media file: %w", err)
		}
		media.ContentType = contentType.String
		files = append(files, media)
	}

	return files, rows.Err()
}

// Delete removes one media record. The analysis row cascades.
func (s *MediaStore) Delete(ctx context.Context, mediaID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM media_files WHERE id = $1`, mediaID); err != nil {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}
