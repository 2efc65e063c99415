package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/outdial/amd/pkg/model"
)

type fixedModel struct {
	label      string
	confidence float64
	err        error
}

func (f *fixedModel) Predict(samples []float32, sampleRate int) (string, float64, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return f.label, f.confidence, nil
}

func (f *fixedModel) Info() model.Info { return model.Info{Name: "fixed", Backend: "test"} }
func (f *fixedModel) Close() error     { return nil }

func newTestLoader(m model.Model, loadErr error) *model.Loader {
	return model.NewLoader(func() (model.Model, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return m, nil
	})
}

func TestLocal_Classify(t *testing.T) {
	local := NewLocal(newTestLoader(&fixedModel{label: "voicemail", confidence: 0.93}, nil))

	samples := make([]float32, 32000) // 2s at 16kHz
	for i := range samples {
		samples[i] = 0.3
	}

	v := local.Classify(context.Background(), samples, 16000)

	if v.Label != LabelVoicemail {
		t.Errorf("expected voicemail, got %q", v.Label)
	}
	if v.Confidence != 0.93 {
		t.Errorf("expected confidence 0.93, got %f", v.Confidence)
	}
	if !strings.Contains(v.Reasoning, "high confidence voicemail detection") {
		t.Errorf("unexpected reasoning %q", v.Reasoning)
	}
}

func TestLocal_Classify_QuietShortAudio(t *testing.T) {
	local := NewLocal(newTestLoader(&fixedModel{label: "human", confidence: 0.6}, nil))

	// 0.5s of near-silence: quiet and short flags should both appear.
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.002
	}

	v := local.Classify(context.Background(), samples, 16000)

	if !strings.Contains(v.Reasoning, "audio very quiet") {
		t.Errorf("expected quiet flag in reasoning, got %q", v.Reasoning)
	}
	if !strings.Contains(v.Reasoning, "very short audio") {
		t.Errorf("expected short-audio flag in reasoning, got %q", v.Reasoning)
	}
	if !strings.Contains(v.Reasoning, "low confidence human detection") {
		t.Errorf("expected low confidence band, got %q", v.Reasoning)
	}
}

func TestLocal_Classify_ClampsConfidence(t *testing.T) {
	local := NewLocal(newTestLoader(&fixedModel{label: "human", confidence: 1.4}, nil))

	v := local.Classify(context.Background(), []float32{0.5, -0.5}, 16000)
	if v.Confidence != 1.0 {
		t.Errorf("expected clamped confidence 1.0, got %f", v.Confidence)
	}
}

func TestLocal_Classify_DowngradesErrors(t *testing.T) {
	local := NewLocal(newTestLoader(nil, errors.New("weights missing")))

	v := local.Classify(context.Background(), []float32{0.5}, 16000)

	if v.Label != LabelUnknown {
		t.Errorf("expected unknown on load failure, got %q", v.Label)
	}
	if v.Confidence != 0 {
		t.Errorf("expected confidence 0, got %f", v.Confidence)
	}
	if !strings.Contains(v.Reasoning, "processing error") {
		t.Errorf("expected diagnostic reasoning, got %q", v.Reasoning)
	}
}

func TestLocal_Classify_EmptyAudio(t *testing.T) {
	local := NewLocal(newTestLoader(&fixedModel{label: "human", confidence: 0.9}, nil))

	v := local.Classify(context.Background(), nil, 16000)
	if v.Label != LabelUnknown {
		t.Errorf("expected unknown for empty audio, got %q", v.Label)
	}
}
