package database

import (
	"context"
	"testing"

	"github.com/veriscope/veriscope/internal/models"
)

func TestCaseStore_CreateAndGet(t *testing.T) {
	cases, media, _, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	created, err := cases.Create(ctx, "user-1", models.CreateCaseParams{
		Title:       "Disputed interview footage",
		Description: "Two clips submitted by counsel",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != models.CaseOpen {
		t.Errorf("status=%q, want open", created.Status)
	}

	if _, err := media.Create(ctx, &models.MediaFile{
		CaseID:      created.ID,
		OwnerUserID: "user-1",
		FileName:    "clip.mp4",
		FilePath:    "cases/" + created.ID + "/clip.mp4",
		MediaType:   models.MediaTypeVideo,
	}); err != nil {
		t.Fatalf("create media: %v", err)
	}

	got, err := cases.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected case")
	}
	if got.Title != "Disputed interview footage" {
		t.Errorf("title=%q", got.Title)
	}
	if got.MediaCount != 1 {
		t.Errorf("mediaCount=%d, want 1", got.MediaCount)
	}
}

func TestCaseStore_CreateValidation(t *testing.T) {
	cases, _, _, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()

	if _, err := cases.Create(ctx, "", models.CreateCaseParams{Title: "x"}); err == nil {
		t.Error("expected error for empty owner")
	}
	if _, err := cases.Create(ctx, "user-1", models.CreateCaseParams{Title: "  "}); err == nil {
		t.Error("expected error for blank title")
	}
}

func TestCaseStore_UpdateStatusAndDeleteCascades(t *testing.T) {
	cases, media, analyses, tdb := newTestStores(t)
	defer tdb.Close()
	ctx := context.Background()
	defer tdb.Cleanup(ctx)

	m := createTestMedia(t, cases, media)

	if err := cases.UpdateStatus(ctx, m.CaseID, models.CaseClosed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := cases.GetByID(ctx, m.CaseID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.CaseClosed {
		t.Errorf("status=%q, want closed", got.Status)
	}

	if err := cases.Delete(ctx, m.CaseID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	mediaRow, err := media.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("media GetByID: %v", err)
	}
	if mediaRow != nil {
		t.Error("media row should cascade on case delete")
	}
	resultRow, err := analyses.GetByMediaID(ctx, m.ID)
	if err != nil {
		t.Fatalf("analyses GetByMediaID: %v", err)
	}
	if resultRow != nil {
		t.Error("analysis row should cascade on case delete")
	}
}

func TestCaseStore_UpdateStatusMissing(t *testing.T) {
	cases, _, _, tdb := newTestStores(t)
	defer tdb.Close()

	err := cases.UpdateStatus(context.Background(), "00000000-0000-0000-0000-000000000000", models.CaseArchived)
	if err == nil {
		t.Error("expected error for missing case")
	}
}
