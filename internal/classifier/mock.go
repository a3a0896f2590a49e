package classifier

import (
	"context"
	"sync"
)

// Mock is a configurable classifier for tests. It is safe for concurrent
// use, since video pipelines classify frames in parallel.
type Mock struct {
	Provider string
	PFake    float64
	Err      error

	mu    sync.Mutex
	calls int
}

// Name implements Classifier.
func (m *Mock) Name() string {
	if m.Provider == "" {
		return "mock"
	}
	return m.Provider
}

// Classify returns the configured verdict or error.
func (m *Mock) Classify(ctx context.Context, data []byte) (*Verdict, error) {
	_ = ctx
	_ = data
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &Verdict{PFake: m.PFake}, nil
}

// CallCount reports how many times Classify ran.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
