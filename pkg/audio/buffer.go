// Package audio provides the streaming buffer and preprocessing pipeline
// for answering-machine detection. All samples are normalized float32 in
// [-1.0, 1.0]; wire format is little-endian 16-bit signed mono PCM.
package audio

// bytesPerSample is fixed for 16-bit PCM.
const bytesPerSample = 2

// Buffer accumulates raw PCM chunks for a single streaming session.
// It tracks the running sample count so duration checks are O(1);
// decoding to float samples happens only when a classification runs.
//
// Buffer is not safe for concurrent use. A session processes its chunks
// strictly in arrival order, so no locking is needed.
type Buffer struct {
	sampleRate   int
	channels     int
	chunks       [][]byte
	totalSamples int
}

// NewBuffer creates an empty buffer for the given stream format.
func NewBuffer(sampleRate, channels int) *Buffer {
	return &Buffer{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Append adds a chunk of raw PCM bytes. The buffer takes ownership of
// the slice; callers must not reuse it.
func (b *Buffer) Append(chunk []byte) {
	b.chunks = append(b.chunks, chunk)
	b.totalSamples += len(chunk) / bytesPerSample
}

// DurationMs returns the buffered audio duration in milliseconds,
// truncated to an integer.
func (b *Buffer) DurationMs() int {
	return int(float64(b.totalSamples) / float64(b.sampleRate) * 1000)
}

// SampleRate returns the stream's fixed sample rate.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Samples concatenates the retained chunks in arrival order and decodes
// them to normalized float32 samples.
func (b *Buffer) Samples() []float32 {
	if len(b.chunks) == 0 {
		return nil
	}

	samples := make([]float32, 0, b.totalSamples)
	for _, chunk := range b.chunks {
		samples = append(samples, BytesToSamples(chunk)...)
	}
	return samples
}

// Clear discards all chunks and resets the sample count.
func (b *Buffer) Clear() {
	b.chunks = nil
	b.totalSamples = 0
}

// IsEmpty reports whether the buffer holds no chunks.
func (b *Buffer) IsEmpty() bool {
	return len(b.chunks) == 0
}
