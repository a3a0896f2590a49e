package facegate

import (
	"context"
	"errors"
	"testing"

	"github.com/veriscope/veriscope/internal/logging"
)

type fakeVisionAPI struct {
	content string
	err     error
}

func (f *fakeVisionAPI) CompleteVision(ctx context.Context, system, prompt string, imageData []byte) (string, error) {
	_ = ctx
	_ = system
	_ = prompt
	_ = imageData
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func TestVisionDetector_ParsesFaces(t *testing.T) {
	api := &fakeVisionAPI{content: `{"hasFaces":true,"faceCount":2,"faceRegions":[{"x":10,"y":20,"width":30,"height":40},{"x":55,"y":25,"width":20,"height":25}]}`}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, err := d.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasFaces {
		t.Fatal("expected hasFaces=true")
	}
	if result.FaceCount != 2 {
		t.Errorf("faceCount=%d, want 2", result.FaceCount)
	}
	if len(result.FaceRegions) != 2 {
		t.Errorf("regions=%d, want 2", len(result.FaceRegions))
	}
	if result.FaceRegions[0].X != 10 {
		t.Errorf("region x=%v, want 10", result.FaceRegions[0].X)
	}
}

func TestVisionDetector_StripsMarkdownFences(t *testing.T) {
	api := &fakeVisionAPI{content: "```json\n{\"hasFaces\":true,\"faceCount\":1}\n```"}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, err := d.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasFaces {
		t.Fatal("expected hasFaces=true")
	}
}

func TestVisionDetector_NoFacesCarriesReason(t *testing.T) {
	api := &fakeVisionAPI{content: `{"hasFaces":false,"faceCount":0,"reason":"landscape photograph"}`}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, _ := d.DetectFaces(context.Background(), []byte("img"))
	if result.HasFaces {
		t.Fatal("expected hasFaces=false")
	}
	if result.Reason != "landscape photograph" {
		t.Errorf("reason=%q", result.Reason)
	}
}

func TestVisionDetector_MalformedResponseDegrades(t *testing.T) {
	api := &fakeVisionAPI{content: "I could not find any JSON to give you, sorry."}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, err := d.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("parse failure must not surface as an error, got: %v", err)
	}
	if result.HasFaces {
		t.Fatal("expected fail-safe hasFaces=false")
	}
	if result.Reason == "" {
		t.Error("expected a generic reason")
	}
}

func TestVisionDetector_TransportFailureDegrades(t *testing.T) {
	api := &fakeVisionAPI{err: errors.New("connection refused")}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, err := d.DetectFaces(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("transport failure must not surface as an error, got: %v", err)
	}
	if result.HasFaces {
		t.Fatal("expected fail-safe hasFaces=false")
	}
}

func TestVisionDetector_ClampsRegions(t *testing.T) {
	api := &fakeVisionAPI{content: `{"hasFaces":true,"faceCount":1,"faceRegions":[{"x":-5,"y":120,"width":30,"height":40}]}`}
	d := NewVisionDetector(api, logging.New(logging.LevelError))

	result, _ := d.DetectFaces(context.Background(), []byte("img"))
	if result.FaceRegions[0].X != 0 || result.FaceRegions[0].Y != 100 {
		t.Errorf("regions not clamped: %+v", result.FaceRegions[0])
	}
}
