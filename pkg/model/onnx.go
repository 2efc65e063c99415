package model

import (
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Defaults for wav2vec2-style sequence classifiers exported to ONNX.
const (
	defaultInputName  = "input_values"
	defaultOutputName = "logits"
	defaultSampleRate = 16000
)

// defaultLabels maps output logit indices to AMD labels.
var defaultLabels = []string{"human", "voicemail"}

// ortInit guards one-time initialization of the onnxruntime
// environment, which is process-global.
var ortInit sync.Once

// ONNXModel implements Model using onnxruntime. The session is created
// once at load time and shared; Run is safe for concurrent callers as
// long as each call uses its own tensors, which Predict does.
type ONNXModel struct {
	session    *ort.DynamicAdvancedSession
	name       string
	inputName  string
	outputName string
	sampleRate int
	labels     []string
}

// ONNXOption configures an ONNXModel.
type ONNXOption func(*ONNXModel)

// WithBlobNames overrides the input and output tensor names.
func WithBlobNames(input, output string) ONNXOption {
	return func(m *ONNXModel) {
		m.inputName = input
		m.outputName = output
	}
}

// WithLabels overrides the logit-index-to-label mapping.
func WithLabels(labels []string) ONNXOption {
	return func(m *ONNXModel) {
		if len(labels) > 0 {
			m.labels = labels
		}
	}
}

// WithModelSampleRate overrides the sample rate the model expects.
func WithModelSampleRate(rate int) ONNXOption {
	return func(m *ONNXModel) {
		if rate > 0 {
			m.sampleRate = rate
		}
	}
}

// NewONNXModel loads an ONNX classifier from modelPath. The
// ONNXRUNTIME_SHARED_LIBRARY env var can point at a non-default
// libonnxruntime location.
func NewONNXModel(modelPath string, opts ...ONNXOption) (*ONNXModel, error) {
	m := &ONNXModel{
		name:       modelPath,
		inputName:  defaultInputName,
		outputName: defaultOutputName,
		sampleRate: defaultSampleRate,
		labels:     defaultLabels,
	}
	for _, opt := range opts {
		opt(m)
	}

	ortInit.Do(func() {
		if lib := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY"); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
	})
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("model: initialize onnxruntime: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{m.inputName},
		[]string{m.outputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("model: open session for %s: %w", modelPath, err)
	}

	m.session = session
	return m, nil
}

// Predict runs the classifier over the full sample array and softmaxes
// the logits into a confidence.
func (m *ONNXModel) Predict(samples []float32, sampleRate int) (string, float64, error) {
	if len(samples) == 0 {
		return "", 0, fmt.Errorf("model: empty sample array")
	}
	if sampleRate != m.sampleRate {
		return "", 0, fmt.Errorf("model: expected %dHz input, got %dHz", m.sampleRate, sampleRate)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return "", 0, fmt.Errorf("model: input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(m.labels))))
	if err != nil {
		return "", 0, fmt.Errorf("model: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return "", 0, fmt.Errorf("model: inference: %w", err)
	}

	probs := softmax(output.GetData())
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return m.labels[best], probs[best], nil
}

// Info returns metadata for health reporting.
func (m *ONNXModel) Info() Info {
	return Info{
		Name:       m.name,
		Backend:    "onnxruntime",
		SampleRate: m.sampleRate,
		Labels:     m.labels,
	}
}

// Close destroys the inference session.
func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}

// softmax converts logits to probabilities, shifting by the max logit
// for numerical stability.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
