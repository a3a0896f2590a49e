package storage

import (
	"context"

	"github.com/veriscope/veriscope/internal/logging"
)

// Frame is one fetched video frame, keeping its position in the sampled
// sequence even when earlier frames were dropped.
type Frame struct {
	Index   int
	Locator string
	Data    []byte
}

// Fetcher resolves storage locators into raw bytes for the pipeline.
type Fetcher struct {
	store  ObjectStore
	logger *logging.Logger
}

// NewFetcher creates a fetcher over the given object store.
func NewFetcher(store ObjectStore, logger *logging.Logger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// FetchImage downloads a single media object. Failure is fatal for the
// pipeline run; retry policy belongs to the caller of the whole pipeline.
func (f *Fetcher) FetchImage(ctx context.Context, locator string) ([]byte, string, error) {
	data, contentType, err := f.store.Download(ctx, locator)
	if err != nil {
		return nil, "", &FetchError{Locator: locator, Err: err}
	}
	return data, contentType, nil
}

// FetchFrames downloads each frame locator independently. A failed frame is
// dropped and logged; only a total failure is an error.
func (f *Fetcher) FetchFrames(ctx context.Context, locators []string) ([]Frame, error) {
	if len(locators) == 0 {
		return nil, &InsufficientFramesError{Requested: 0}
	}

	frames := make([]Frame, 0, len(locators))
	for i, locator := range locators {
		data, _, err := f.store.Download(ctx, locator)
		if err != nil {
			f.logger.Warn("dropping unfetchable frame",
				logging.WithField("index", i),
				logging.WithField("locator", locator),
				logging.WithField("error", err.Error()))
			continue
		}
		frames = append(frames, Frame{Index: i, Locator: locator, Data: data})
	}

	if len(frames) == 0 {
		return nil, &InsufficientFramesError{Requested: len(locators)}
	}

	return frames, nil
}
