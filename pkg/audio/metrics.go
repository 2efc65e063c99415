package audio

import "math"

// Quality thresholds for derived metric flags.
const (
	clippingPeak = 0.99
	quietRMS     = 0.01
)

// Metrics is an immutable quality snapshot of a sample array, computed
// once per classification attempt.
type Metrics struct {
	DurationSeconds float64 `json:"duration_seconds"`
	SampleRate      int     `json:"sample_rate"`
	RMSLevel        float64 `json:"rms_level"`
	PeakLevel       float64 `json:"peak_level"`
	IsClipping      bool    `json:"is_clipping"`
	IsTooQuiet      bool    `json:"is_too_quiet"`
}

// ComputeMetrics derives duration, RMS and peak levels from samples.
func ComputeMetrics(samples []float32, sampleRate int) Metrics {
	m := Metrics{
		SampleRate: sampleRate,
	}
	if sampleRate > 0 {
		m.DurationSeconds = float64(len(samples)) / float64(sampleRate)
	}
	if len(samples) == 0 {
		m.IsTooQuiet = true
		return m
	}

	var sum float64
	var peak float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
		if a := math.Abs(f); a > peak {
			peak = a
		}
	}

	m.RMSLevel = math.Sqrt(sum / float64(len(samples)))
	m.PeakLevel = peak
	m.IsClipping = peak > clippingPeak
	m.IsTooQuiet = m.RMSLevel < quietRMS
	return m
}
