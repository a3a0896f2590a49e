// Package storage abstracts the object store holding uploaded media and
// provides the fetcher the analysis pipeline reads media through.
package storage

import (
	"context"
	"fmt"
)

// ObjectStore is the binary media store contract.
type ObjectStore interface {
	// Download returns the object bytes and declared content type.
	Download(ctx context.Context, path string) ([]byte, string, error)
	// Upload stores the object bytes under path.
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}

// FetchError wraps a failed media download. Fatal to a pipeline run when it
// concerns the primary media object.
type FetchError struct {
	Locator string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// InsufficientFramesError means no frame of a video could be retrieved.
type InsufficientFramesError struct {
	Requested int
}

func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("no usable frames: all %d frame fetches failed", e.Requested)
}
