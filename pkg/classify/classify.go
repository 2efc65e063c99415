// Package classify abstracts answering-machine detection over
// interchangeable backends: a remote Gemini audio classifier and a
// local ONNX model. Both are consumed identically by the streaming
// session and the one-shot request path.
//
// Classify never fails across the component boundary. Any upload,
// network or inference error is downgraded to an unknown verdict with
// a bounded diagnostic string; callers branch on the verdict, not on
// errors.
package classify

import (
	"context"
	"time"
)

// Label is a classification outcome.
type Label string

// Canonical labels emitted by every backend.
const (
	LabelHuman     Label = "human"
	LabelVoicemail Label = "voicemail"
	LabelUnknown   Label = "unknown"
)

// maxDiagnosticLen bounds the reasoning string attached to downgraded
// failures so raw error chains never reach a caller.
const maxDiagnosticLen = 100

// Verdict is the structured result of one classification attempt.
type Verdict struct {
	Label          Label
	Confidence     float64
	Reasoning      string
	ProcessingTime time.Duration
}

// Classifier turns a sample array into a verdict.
type Classifier interface {
	// Classify analyzes normalized mono samples at sampleRate. It
	// always returns a usable verdict; failures appear as
	// LabelUnknown with confidence 0.
	Classify(ctx context.Context, samples []float32, sampleRate int) Verdict

	// Name identifies the backend for logging and health reporting.
	Name() string
}

// clampConfidence forces a confidence into [0, 1] even when an
// upstream source reports an out-of-range value.
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// failureVerdict downgrades an error to an unknown verdict with a
// truncated diagnostic.
func failureVerdict(start time.Time, err error) Verdict {
	return Verdict{
		Label:          LabelUnknown,
		Confidence:     0,
		Reasoning:      truncate("processing error: "+err.Error(), maxDiagnosticLen),
		ProcessingTime: time.Since(start),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
