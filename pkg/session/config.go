package session

import "time"

// Config controls one streaming session's buffering and decision
// behavior.
type Config struct {
	// SampleRate and Channels describe the inbound PCM stream.
	SampleRate int
	Channels   int

	// BufferThresholdMs is the accumulated duration that triggers a
	// classification attempt.
	BufferThresholdMs int

	// IdleTimeout is the longest wait for the next chunk before the
	// buffered audio is classified anyway.
	IdleTimeout time.Duration

	// DecisionThreshold is the confidence above which a verdict is
	// final and the session closes.
	DecisionThreshold float64

	// Preprocess enables silence trimming and peak normalization
	// before classification.
	Preprocess bool

	// SilenceThreshold and TargetPeak parameterize preprocessing.
	SilenceThreshold float32
	TargetPeak       float32

	// MaxAudioSeconds caps the sample array handed to the classifier.
	MaxAudioSeconds int
}

// DefaultConfig returns production defaults for dialer media streams:
// 16kHz mono, classify every 3 seconds of audio, give up on a silent
// peer after 5 seconds.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		BufferThresholdMs: 3000,
		IdleTimeout:       5 * time.Second,
		DecisionThreshold: 0.85,
		Preprocess:        true,
		SilenceThreshold:  0.01,
		TargetPeak:        0.9,
		MaxAudioSeconds:   10,
	}
}
