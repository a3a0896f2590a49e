package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/veriscope/veriscope/internal/models"
)

// AnalysisStore is the result writer: it owns the one analysis_results row
// per media item.
type AnalysisStore struct {
	db *DB
}

// NewAnalysisStore creates a new analysis store.
func NewAnalysisStore(db *DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// EnsureProcessing upserts the media's result row into the processing state
// at the start of a pipeline run, clearing any previous outcome.
func (s *AnalysisStore) EnsureProcessing(ctx context.Context, mediaID string) error {
	query := `
		INSERT INTO analysis_results (media_id, status)
		VALUES ($1, $2)
		ON CONFLICT (media_id) DO UPDATE
		SET status = $2, error_message = NULL, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, mediaID, string(models.AnalysisProcessing)); err != nil {
		return fmt.Errorf("mark analysis processing: %w", err)
	}

	return nil
}

// Complete performs the single completing update for a run. Repeating the
// same write is harmless; a later distinct run simply overwrites.
func (s *AnalysisStore) Complete(ctx context.Context, mediaID string, result *models.AnalysisResult) error {
	artifactsJSON, err := json.Marshal(orEmptyArtifacts(result.VisualArtifacts))
	if err != nil {
		return fmt.Errorf("marshal visual artifacts: %w", err)
	}
	heatmapJSON, err := json.Marshal(result.Heatmap)
	if err != nil {
		return fmt.Errorf("marshal heatmap: %w", err)
	}

	var frameJSON []byte
	if len(result.FrameAnalysis) > 0 {
		frameJSON, err = json.Marshal(result.FrameAnalysis)
		if err != nil {
			return fmt.Errorf("marshal frame analysis: %w", err)
		}
	}

	query := `
		UPDATE analysis_results
		SET status = $2,
		    verdict = $3,
		    credibility_level = $4,
		    credibility_score = $5,
		    p_fake = $6,
		    visual_artifacts = $7,
		    plain_explanation = $8,
		    technical_explanation = $9,
		    legal_explanation = $10,
		    heatmap_data = $11,
		    frame_analysis = $12,
		    sha256_hash = $13,
		    error_message = NULL,
		    updated_at = NOW(),
		    completed_at = NOW()
		WHERE media_id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		mediaID,
		string(models.AnalysisCompleted),
		string(result.Verdict),
		string(result.CredibilityLevel),
		result.CredibilityScore,
		result.PFake,
		artifactsJSON,
		result.PlainExplanation,
		result.TechnicalExplanation,
		result.LegalExplanation,
		heatmapJSON,
		nullableJSON(frameJSON),
		result.SHA256,
	)
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete analysis: no result row for media %s", mediaID)
	}

	return nil
}

// Fail marks the run failed with a human-readable reason and no partial
// result fields.
func (s *AnalysisStore) Fail(ctx context.Context, mediaID, reason string) error {
	query := `
		UPDATE analysis_results
		SET status = $2,
		    verdict = NULL,
		    credibility_level = NULL,
		    credibility_score = NULL,
		    p_fake = NULL,
		    visual_artifacts = '[]',
		    plain_explanation = NULL,
		    technical_explanation = NULL,
		    legal_explanation = NULL,
		    heatmap_data = NULL,
		    frame_analysis = NULL,
		    sha256_hash = NULL,
		    error_message = $3,
		    updated_at = NOW(),
		    completed_at = NULL
		WHERE media_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, mediaID, string(models.AnalysisFailed), reason)
	if err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("fail analysis: no result row for media %s", mediaID)
	}

	return nil
}

// GetByMediaID retrieves the result row for one media item, or nil when no
// row exists.
func (s *AnalysisStore) GetByMediaID(ctx context.Context, mediaID string) (*models.AnalysisResult, error) {
	query := `
		SELECT media_id, status, verdict, credibility_level, credibility_score, p_fake,
		       visual_artifacts, plain_explanation, technical_explanation, legal_explanation,
		       heatmap_data, frame_analysis, sha256_hash, error_message,
		       created_at, updated_at, completed_at
		FROM analysis_results
		WHERE media_id = $1
	`

	result, err := s.scanResult(s.db.QueryRowContext(ctx, query, mediaID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return result, err
}

// ListRecent returns the newest completed or failed analyses.
func (s *AnalysisStore) ListRecent(ctx context.Context, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	query := `
		SELECT media_id, status, verdict, credibility_level, credibility_score, p_fake,
		       visual_artifacts, plain_explanation, technical_explanation, legal_explanation,
		       heatmap_data, frame_analysis, sha256_hash, error_message,
		       created_at, updated_at, completed_at
		FROM analysis_results
		WHERE status IN ($1, $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query,
		string(models.AnalysisCompleted), string(models.AnalysisFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	results := []models.AnalysisResult{}
	for rows.Next() {
		result, err := s.scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *AnalysisStore) scanResult(row rowScanner) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	var verdict, level, plain, technical, legal, sha, errMsg sql.NullString
	var score sql.NullInt64
	var pFake sql.NullFloat64
	var artifactsJSON, heatmapJSON, frameJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&result.MediaID, &result.Status, &verdict, &level, &score, &pFake,
		&artifactsJSON, &plain, &technical, &legal,
		&heatmapJSON, &frameJSON, &sha, &errMsg,
		&result.CreatedAt, &result.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis result: %w", err)
	}

	result.Verdict = models.Verdict(verdict.String)
	result.CredibilityLevel = models.CredibilityLevel(level.String)
	result.CredibilityScore = int(score.Int64)
	result.PFake = pFake.Float64
	result.PlainExplanation = plain.String
	result.TechnicalExplanation = technical.String
	result.LegalExplanation = legal.String
	result.SHA256 = sha.String
	result.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		result.CompletedAt = &t
	}

	if len(artifactsJSON) > 0 {
		if err := json.Unmarshal(artifactsJSON, &result.VisualArtifacts); err != nil {
			return nil, fmt.Errorf("unmarshal visual artifacts: %w", err)
		}
	}
	if len(heatmapJSON) > 0 {
		if err := json.Unmarshal(heatmapJSON, &result.Heatmap); err != nil {
			return nil, fmt.Errorf("unmarshal heatmap: %w", err)
		}
	}
	if len(frameJSON) > 0 {
		if err := json.Unmarshal(frameJSON, &result.FrameAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal frame analysis: %w", err)
		}
	}

	return &result, nil
}

func orEmptyArtifacts(artifacts []models.VisualArtifact) []models.VisualArtifact {
	if artifacts == nil {
		return []models.VisualArtifact{}
	}
	return artifacts
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
