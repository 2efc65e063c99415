package model

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outdial/amd/internal/log"
)

// ErrNotConfigured is returned when the loader has no factory, meaning
// no local model was configured for this process.
var ErrNotConfigured = errors.New("model: no model configured")

// Factory constructs the underlying model. It is invoked at most once
// per successful load; an expensive operation (reading weights, warming
// an inference session) belongs here, not in NewLoader.
type Factory func() (Model, error)

// Loader performs lazy, concurrency-safe one-time loading of the model.
//
// The loaded flag is checked without the lock on the fast path; on a
// miss the lock is taken and the flag re-checked, so concurrent first
// callers block on the same mutex and exactly one load executes. The
// flag is set only after the model is fully assigned, so no caller can
// observe a partially loaded model.
//
// A failed load is returned to the caller but not remembered: the next
// call retries from scratch.
type Loader struct {
	factory Factory

	loaded atomic.Bool
	mu     sync.Mutex
	model  Model
}

// NewLoader creates a loader around factory. The model is not loaded
// until the first EnsureLoaded or Predict call.
func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// EnsureLoaded loads the model if it is not loaded yet. Idempotent;
// safe to call from any number of goroutines.
func (l *Loader) EnsureLoaded() error {
	if l.loaded.Load() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another caller may have finished loading while we waited.
	if l.loaded.Load() {
		return nil
	}

	if l.factory == nil {
		return ErrNotConfigured
	}

	log.Info("loading AMD model")
	start := time.Now()

	m, err := l.factory()
	if err != nil {
		log.Error("model load failed", "error", err)
		return fmt.Errorf("model: load: %w", err)
	}

	l.model = m
	l.loaded.Store(true)
	log.Info("AMD model loaded", "duration", time.Since(start), "name", m.Info().Name)
	return nil
}

// Loaded reports whether the model has finished loading.
func (l *Loader) Loaded() bool {
	return l.loaded.Load()
}

// Configured reports whether a model factory was provided.
func (l *Loader) Configured() bool {
	return l.factory != nil
}

// Predict ensures the model is loaded, then delegates to it.
func (l *Loader) Predict(samples []float32, sampleRate int) (string, float64, error) {
	if err := l.EnsureLoaded(); err != nil {
		return "", 0, err
	}
	return l.model.Predict(samples, sampleRate)
}

// Info returns the loaded model's metadata. ok is false while the
// model is not loaded.
func (l *Loader) Info() (info Info, ok bool) {
	if !l.loaded.Load() {
		return Info{}, false
	}
	return l.model.Info(), true
}

// Close releases the underlying model if one was loaded.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	return l.model.Close()
}
