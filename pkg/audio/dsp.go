package audio

import "math"

// BytesToSamples converts raw PCM16 little-endian bytes to normalized
// float32 samples (int16 / 32768). A trailing odd byte is ignored.
func BytesToSamples(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// SamplesToBytes converts normalized float32 samples to PCM16
// little-endian bytes, clamping to the int16 range.
func SamplesToBytes(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := f * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// Resample converts audio from one sample rate to another using linear
// interpolation. This is a simple resampler suitable for speech audio.
// It is a no-op when the rates match.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(math.Round(float64(len(samples)) / ratio))
	if newLen == 0 {
		return []float32{}
	}

	result := make([]float32, newLen)
	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
		} else {
			s1 := float64(samples[srcIdx])
			s2 := float64(samples[srcIdx+1])
			result[i] = float32(s1 + frac*(s2-s1))
		}
	}
	return result
}

// TrimSilence returns the inclusive subrange between the first and last
// sample whose absolute amplitude exceeds threshold. If every sample is
// below the threshold the input is returned unchanged, never empty.
func TrimSilence(samples []float32, threshold float32) []float32 {
	first := -1
	last := -1
	for i, s := range samples {
		if s > threshold || -s > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	if first < 0 {
		return samples
	}
	return samples[first : last+1]
}

// Normalize scales every sample by targetPeak divided by the current
// peak. A zero peak leaves the input unchanged.
func Normalize(samples []float32, targetPeak float32) []float32 {
	var peak float32
	for _, s := range samples {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}

	if peak == 0 {
		return samples
	}

	gain := targetPeak / peak
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = s * gain
	}
	return result
}

// Truncate caps samples at sampleRate*maxSeconds, keeping the start of
// the recording. The answer greeting carries the signal; trailing audio
// past the cap adds nothing for the classifier.
func Truncate(samples []float32, sampleRate, maxSeconds int) []float32 {
	max := sampleRate * maxSeconds
	if len(samples) <= max {
		return samples
	}
	return samples[:max]
}
