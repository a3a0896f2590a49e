package database

import (
	"context"
	"testing"

	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/testutil"
)

func newTestStores(t *testing.T) (*CaseStore, *MediaStore, *AnalysisStore, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	db := &DB{DB: tdb.DB}
	return NewCaseStore(db), NewMediaStore(db), NewAnalysisStore(db), tdb
}

func createTestMedia(t *testing.T, cases *CaseStore, media *MediaStore) *models.MediaFile {
	t.Helper()
	ctx := context.Background()

	c, err := cases.Create(ctx, "user-1", models.CreateCaseParams{Title: "Test case"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}

	saved, err := media.Create(ctx, &models.MediaFile{
		CaseID:      c.ID,
		OwnerUserID: "user-1",
		FileName:    "sample.jpg",
		FilePath:    "cases/" + c.ID + "/sample.jpg",
		MediaType:   models.MediaTypeImage,
		ContentType: "image/jpeg",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("create media: %v", err)
	}
	return saved
}

func TestAnalysisStore_PendingRowCreatedWithMedia(t *testing.T) {
	cases, media, analyses, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	m := createTestMedia(t, cases, media)

	result, err := analyses.GetByMediaID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByMediaID: %v", err)
	}
	if result == nil {
		t.Fatal("expected pending analysis row to exist")
	}
	if result.Status != models.AnalysisPending {
		t.Errorf("status=%q, want %q", result.Status, models.AnalysisPending)
	}
}

func TestAnalysisStore_CompleteLifecycle(t *testing.T) {
	cases, media, analyses, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	m := createTestMedia(t, cases, media)

	if err := analyses.EnsureProcessing(ctx, m.ID); err != nil {
		t.Fatalf("EnsureProcessing: %v", err)
	}

	completed := &models.AnalysisResult{
		MediaID:          m.ID,
		Verdict:          models.VerdictFake,
		CredibilityLevel: models.LevelManipulated,
		CredibilityScore: 15,
		PFake:            0.85,
		VisualArtifacts: []models.VisualArtifact{
			{Type: "blending", Location: "jawline", Severity: "high"},
		},
		PlainExplanation:     "This image appears manipulated.",
		TechnicalExplanation: "Classifier score 0.85 exceeded the manipulation threshold.",
		LegalExplanation:     "The analysis indicates a high likelihood of manipulation.",
		Heatmap: []models.HeatmapCell{
			{X: 0, Y: 0, Value: 0.4},
		},
		SHA256: "deadbeef",
	}
	if err := analyses.Complete(ctx, m.ID, completed); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := analyses.GetByMediaID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByMediaID: %v", err)
	}
	if got.Status != models.AnalysisCompleted {
		t.Errorf("status=%q, want completed", got.Status)
	}
	if got.Verdict != models.VerdictFake {
		t.Errorf("verdict=%q, want %q", got.Verdict, models.VerdictFake)
	}
	if got.CredibilityScore != 15 {
		t.Errorf("credibilityScore=%d, want 15", got.CredibilityScore)
	}
	if len(got.VisualArtifacts) != 1 || got.VisualArtifacts[0].Type != "blending" {
		t.Errorf("unexpected artifacts: %+v", got.VisualArtifacts)
	}
	if len(got.Heatmap) != 1 {
		t.Errorf("heatmap cells=%d, want 1", len(got.Heatmap))
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if got.ErrorMessage != "" {
		t.Errorf("errorMessage=%q, want empty", got.ErrorMessage)
	}
}

func TestAnalysisStore_FailClearsResultFields(t *testing.T) {
	cases, media, analyses, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	m := createTestMedia(t, cases, media)

	if err := analyses.EnsureProcessing(ctx, m.ID); err != nil {
		t.Fatalf("EnsureProcessing: %v", err)
	}
	if err := analyses.Fail(ctx, m.ID, "media fetch failed"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	got, err := analyses.GetByMediaID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByMediaID: %v", err)
	}
	if got.Status != models.AnalysisFailed {
		t.Errorf("status=%q, want failed", got.Status)
	}
	if got.ErrorMessage != "media fetch failed" {
		t.Errorf("errorMessage=%q", got.ErrorMessage)
	}
	if got.Verdict != "" || got.CredibilityScore != 0 {
		t.Errorf("expected no partial result fields, got verdict=%q score=%d", got.Verdict, got.CredibilityScore)
	}
	if got.CompletedAt != nil {
		t.Error("completed_at should be nil after failure")
	}
}

func TestAnalysisStore_ReRunOverwritesFailure(t *testing.T) {
	cases, media, analyses, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	m := createTestMedia(t, cases, media)

	if err := analyses.Fail(ctx, m.ID, "upstream timeout"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := analyses.EnsureProcessing(ctx, m.ID); err != nil {
		t.Fatalf("EnsureProcessing after failure: %v", err)
	}

	got, err := analyses.GetByMediaID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByMediaID: %v", err)
	}
	if got.Status != models.AnalysisProcessing {
		t.Errorf("status=%q, want processing", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Errorf("errorMessage=%q, want cleared", got.ErrorMessage)
	}
}

func TestAnalysisStore_GetMissingReturnsNil(t *testing.T) {
	_, _, analyses, tdb := newTestStores(t)
	defer tdb.Close()

	got, err := analyses.GetByMediaID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("GetByMediaID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing row, got %+v", got)
	}
}
