package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/outdial/amd/pkg/audio"
	"github.com/outdial/amd/pkg/model"
)

// Local classifies audio with the in-process model managed by a
// model.Loader. Synchronous and fast enough for interactive use; the
// first call pays the one-time load cost.
type Local struct {
	loader *model.Loader
}

// NewLocal wraps a model loader as a Classifier.
func NewLocal(loader *model.Loader) *Local {
	return &Local{loader: loader}
}

// Name identifies the backend.
func (l *Local) Name() string { return "local" }

// Classify runs the model over the samples. Inference errors are
// downgraded to an unknown verdict.
func (l *Local) Classify(ctx context.Context, samples []float32, sampleRate int) Verdict {
	start := time.Now()

	if len(samples) == 0 {
		return failureVerdict(start, ErrEmptyAudio)
	}

	label, confidence, err := l.loader.Predict(samples, sampleRate)
	if err != nil {
		return failureVerdict(start, err)
	}

	metrics := audio.ComputeMetrics(samples, sampleRate)
	verdict := Verdict{
		Label:          Label(label),
		Confidence:     clampConfidence(confidence),
		Reasoning:      reasoning(label, confidence, metrics),
		ProcessingTime: time.Since(start),
	}
	return verdict
}

// reasoning builds the human-readable explanation attached to local
// verdicts from the confidence band and audio quality flags.
func reasoning(label string, confidence float64, m audio.Metrics) string {
	var reasons []string

	if m.IsTooQuiet {
		reasons = append(reasons, "audio very quiet")
	}
	if m.IsClipping {
		reasons = append(reasons, "audio clipping detected")
	}

	switch {
	case confidence > 0.9:
		reasons = append(reasons, fmt.Sprintf("high confidence %s detection", label))
	case confidence > 0.7:
		reasons = append(reasons, fmt.Sprintf("moderate confidence %s detection", label))
	default:
		reasons = append(reasons, fmt.Sprintf("low confidence %s detection", label))
	}

	if m.DurationSeconds < 1.0 {
		reasons = append(reasons, "very short audio")
	}

	return strings.Join(reasons, ", ")
}
