package audio

import (
	"math"
	"testing"
)

func TestResample_SameRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	result := Resample(samples, 16000, 16000)

	if len(result) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(result))
	}
	for i, s := range samples {
		if result[i] != s {
			t.Errorf("sample %d: expected %f, got %f", i, s, result[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 48kHz -> 16kHz (3:1 ratio)
	samples := make([]float32, 960)
	for i := range samples {
		samples[i] = float32(i) / 960
	}

	result := Resample(samples, 48000, 16000)

	if len(result) != 320 {
		t.Errorf("expected 320 samples, got %d", len(result))
	}
}

func TestResample_Upsample(t *testing.T) {
	// 8kHz -> 16kHz (1:2 ratio)
	samples := make([]float32, 160)
	result := Resample(samples, 8000, 16000)

	if len(result) != 320 {
		t.Errorf("expected 320 samples, got %d", len(result))
	}
}

func TestResample_Empty(t *testing.T) {
	if got := Resample(nil, 8000, 16000); len(got) != 0 {
		t.Error("expected empty result for nil input")
	}
}

func TestTrimSilence(t *testing.T) {
	samples := []float32{0.001, 0.002, 0.5, -0.3, 0.2, 0.001, 0.001}
	result := TrimSilence(samples, 0.01)

	if len(result) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(result))
	}
	if result[0] != 0.5 || result[2] != 0.2 {
		t.Errorf("unexpected trim range: %v", result)
	}
}

func TestTrimSilence_AllSilent(t *testing.T) {
	// Total silence must come back unchanged, never empty.
	samples := []float32{0.001, -0.002, 0.003}
	result := TrimSilence(samples, 0.01)

	if len(result) != len(samples) {
		t.Fatalf("expected unchanged array of %d samples, got %d", len(samples), len(result))
	}
	for i := range samples {
		if result[i] != samples[i] {
			t.Errorf("sample %d changed: %f != %f", i, result[i], samples[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	samples := []float32{0.1, -0.45, 0.3}
	result := Normalize(samples, 0.9)

	var peak float32
	for _, s := range result {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}
	if math.Abs(float64(peak)-0.9) > 1e-6 {
		t.Errorf("expected peak 0.9, got %f", peak)
	}
}

func TestNormalize_ZeroPeak(t *testing.T) {
	samples := []float32{0, 0, 0}
	result := Normalize(samples, 0.9)

	for i, s := range result {
		if s != 0 {
			t.Errorf("sample %d: expected 0, got %f", i, s)
		}
	}
}

func TestTruncate(t *testing.T) {
	samples := make([]float32, 16000*12)
	result := Truncate(samples, 16000, 10)

	if len(result) != 160000 {
		t.Errorf("expected 160000 samples, got %d", len(result))
	}

	short := make([]float32, 100)
	if got := Truncate(short, 16000, 10); len(got) != 100 {
		t.Errorf("short input should be untouched, got %d samples", len(got))
	}
}

func TestBytesToSamples_RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F}
	samples := BytesToSamples(data)

	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	back := SamplesToBytes(samples)
	for i := range data {
		if back[i] != data[i] {
			t.Errorf("byte %d: expected 0x%02x, got 0x%02x", i, data[i], back[i])
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.5, -0.5}
	m := ComputeMetrics(samples, 16000)

	if m.DurationSeconds != 4.0/16000 {
		t.Errorf("unexpected duration %f", m.DurationSeconds)
	}
	if math.Abs(m.RMSLevel-0.5) > 1e-6 {
		t.Errorf("expected RMS 0.5, got %f", m.RMSLevel)
	}
	if m.PeakLevel != 0.5 {
		t.Errorf("expected peak 0.5, got %f", m.PeakLevel)
	}
	if m.IsClipping {
		t.Error("peak 0.5 should not flag clipping")
	}
	if m.IsTooQuiet {
		t.Error("RMS 0.5 should not flag too-quiet")
	}
}

func TestComputeMetrics_Flags(t *testing.T) {
	loud := []float32{0.995, -0.995}
	if m := ComputeMetrics(loud, 16000); !m.IsClipping {
		t.Error("peak 0.995 should flag clipping")
	}

	quiet := []float32{0.001, -0.001}
	if m := ComputeMetrics(quiet, 16000); !m.IsTooQuiet {
		t.Error("RMS 0.001 should flag too-quiet")
	}
}

func BenchmarkBytesToSamples(b *testing.B) {
	data := make([]byte, 32000) // 1s at 16kHz
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BytesToSamples(data)
	}
}

func BenchmarkResample_3to1(b *testing.B) {
	samples := make([]float32, 48000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Resample(samples, 48000, 16000)
	}
}
