package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/veriscope/veriscope/internal/logging"
)

// fakeStore serves objects from a map; missing keys fail.
type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Download(ctx context.Context, path string) ([]byte, string, error) {
	_ = ctx
	data, ok := f.objects[path]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return data, "image/jpeg", nil
}

func (f *fakeStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	_ = ctx
	_ = contentType
	f.objects[path] = data
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, path string) error {
	_ = ctx
	delete(f.objects, path)
	return nil
}

func testFetcher(objects map[string][]byte) *Fetcher {
	return NewFetcher(&fakeStore{objects: objects}, logging.New(logging.LevelError))
}

func TestFetchImage(t *testing.T) {
	f := testFetcher(map[string][]byte{"cases/c1/img.jpg": []byte("jpeg-bytes")})

	data, contentType, err := f.FetchImage(context.Background(), "cases/c1/img.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("data=%q", data)
	}
	if contentType != "image/jpeg" {
		t.Errorf("contentType=%q", contentType)
	}
}

func TestFetchImage_MissingObjectIsFetchError(t *testing.T) {
	f := testFetcher(map[string][]byte{})

	_, _, err := f.FetchImage(context.Background(), "missing.jpg")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err=%v, want *FetchError", err)
	}
	if fetchErr.Locator != "missing.jpg" {
		t.Errorf("locator=%q", fetchErr.Locator)
	}
}

func TestFetchFrames_DropsFailedFrames(t *testing.T) {
	f := testFetcher(map[string][]byte{
		"frames/0.jpg": []byte("f0"),
		"frames/2.jpg": []byte("f2"),
	})

	frames, err := f.FetchFrames(context.Background(), []string{"frames/0.jpg", "frames/1.jpg", "frames/2.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames=%d, want 2", len(frames))
	}
	// Dropped frame must not shift surviving indices.
	if frames[0].Index != 0 || frames[1].Index != 2 {
		t.Errorf("indices=%d,%d, want 0,2", frames[0].Index, frames[1].Index)
	}
}

func TestFetchFrames_AllFailedIsInsufficient(t *testing.T) {
	f := testFetcher(map[string][]byte{})

	_, err := f.FetchFrames(context.Background(), []string{"a.jpg", "b.jpg"})
	var insufficientErr *InsufficientFramesError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("err=%v, want *InsufficientFramesError", err)
	}
	if insufficientErr.Requested != 2 {
		t.Errorf("requested=%d, want 2", insufficientErr.Requested)
	}
}

func TestFetchFrames_EmptyLocators(t *testing.T) {
	f := testFetcher(map[string][]byte{})

	_, err := f.FetchFrames(context.Background(), nil)
	var insufficientErr *InsufficientFramesError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("err=%v, want *InsufficientFramesError", err)
	}
}
