package classify

import (
	"context"
	"sync"
)

// Mock is a scripted classifier for tests. Each Classify call returns
// the next verdict from the script; the last verdict repeats once the
// script is exhausted.
type Mock struct {
	mu       sync.Mutex
	verdicts []Verdict
	calls    int

	// LastSamples records the most recent input for assertions.
	LastSamples    []float32
	LastSampleRate int
}

// NewMock creates a mock returning the given verdicts in order.
func NewMock(verdicts ...Verdict) *Mock {
	if len(verdicts) == 0 {
		verdicts = []Verdict{{Label: LabelUnknown, Confidence: 0}}
	}
	return &Mock{verdicts: verdicts}
}

// Name identifies the backend.
func (m *Mock) Name() string { return "mock" }

// Classify returns the next scripted verdict.
func (m *Mock) Classify(ctx context.Context, samples []float32, sampleRate int) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastSamples = samples
	m.LastSampleRate = sampleRate

	idx := m.calls
	if idx >= len(m.verdicts) {
		idx = len(m.verdicts) - 1
	}
	m.calls++
	return m.verdicts[idx]
}

// Calls returns how many times Classify ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
