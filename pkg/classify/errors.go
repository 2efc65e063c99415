package classify

import "errors"

// Sentinel errors for backend availability. These surface through
// health reporting and constructor calls, never through Classify.
var (
	// ErrNoAPIKey is returned when the remote backend has no key.
	ErrNoAPIKey = errors.New("classify: API key required")

	// ErrProcessingFailed is returned when the remote side reports a
	// terminal failed state for an uploaded audio file.
	ErrProcessingFailed = errors.New("classify: remote audio processing failed")

	// ErrEmptyAudio is returned for a zero-length sample array.
	ErrEmptyAudio = errors.New("classify: empty audio")
)
