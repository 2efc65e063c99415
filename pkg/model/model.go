// Package model manages the local answering-machine-detection model:
// a lazily loaded, process-wide inference resource shared by every
// session and request handler.
package model

// Model runs AMD inference on an in-memory sample array.
//
// The input must be normalized mono float32 samples at the rate the
// model was trained for (16kHz for the bundled classifier).
//
// Implementations must be safe for concurrent use; multiple sessions
// may call Predict simultaneously.
type Model interface {
	// Predict classifies the samples and returns the winning label
	// with its confidence in [0, 1].
	Predict(samples []float32, sampleRate int) (label string, confidence float64, err error)

	// Info returns static metadata for health reporting.
	Info() Info

	// Close releases resources held by the model.
	Close() error
}

// Info is read-only model metadata exposed on the health endpoints.
type Info struct {
	Name       string   `json:"name"`
	Backend    string   `json:"backend"`
	SampleRate int      `json:"sample_rate"`
	Labels     []string `json:"labels"`
}
