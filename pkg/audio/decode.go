package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for WAV files whose encoding or bit
// depth the decoder cannot handle.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

const wavFormatPCM = 1

// Decode loads audio bytes into normalized mono samples at targetRate.
//
// If the payload carries a RIFF/WAVE header the fmt chunk's sample rate,
// channel count and bit depth are honored: 8, 16 and 32-bit PCM are
// decoded, multi-channel audio is downmixed by arithmetic mean, and the
// result is resampled to targetRate. Anything without a recognizable
// header is treated as raw 16-bit signed mono PCM already at targetRate,
// which is what dialer media streams deliver.
func Decode(data []byte, targetRate int) ([]float32, int, error) {
	if isWAV(data) {
		samples, rate, err := decodeWAV(data)
		if err != nil {
			return nil, 0, err
		}
		return Resample(samples, rate, targetRate), targetRate, nil
	}

	return BytesToSamples(data), targetRate, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// decodeWAV walks the RIFF chunk list for fmt and data chunks and
// decodes the payload to normalized mono samples at the file's rate.
func decodeWAV(data []byte) ([]float32, int, error) {
	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
		haveFmt       bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, 0, fmt.Errorf("audio: missing fmt or data chunk: %w", ErrUnsupportedFormat)
	}
	if format != wavFormatPCM {
		return nil, 0, fmt.Errorf("audio: WAV format %d: %w", format, ErrUnsupportedFormat)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, 0, fmt.Errorf("audio: invalid fmt chunk (channels=%d rate=%d)", channels, sampleRate)
	}

	var samples []float32
	switch bitsPerSample {
	case 8:
		samples = make([]float32, len(pcm))
		for i, b := range pcm {
			samples[i] = (float32(b) - 128) / 128.0
		}
	case 16:
		samples = BytesToSamples(pcm)
	case 32:
		samples = make([]float32, len(pcm)/4)
		for i := range samples {
			v := int32(binary.LittleEndian.Uint32(pcm[i*4 : i*4+4]))
			samples[i] = float32(float64(v) / 2147483648.0)
		}
	default:
		return nil, 0, fmt.Errorf("audio: %d-bit samples: %w", bitsPerSample, ErrUnsupportedFormat)
	}

	if channels > 1 {
		samples = downmix(samples, channels)
	}
	return samples, sampleRate, nil
}

// downmix averages interleaved channels into mono.
func downmix(samples []float32, channels int) []float32 {
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// EncodeWAV wraps normalized samples in a 16-bit mono RIFF/WAVE
// container. Used when handing audio to upload-based classifiers.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	pcm := SamplesToBytes(samples)

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*bytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
