package audio

import (
	"math"
	"testing"
)

func TestResampleMonoIdentity(t *testing.T) {
	x := []float32{0, 0.5, -0.5, 0.25}
	y, err := ResampleMono(x, 16000, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(x) != len(y) {
		t.Fatalf("expected same length, got %d vs %d", len(x), len(y))
	}
	for i := range x {
		if x[i] != y[i] {
			t.Fatalf("index %d: got %v want %v", i, y[i], x[i])
		}
	}
}

func TestResampleMonoChangesLength(t *testing.T) {
	input := make([]float32, 4410)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}

	out, err := ResampleMono(input, 44100, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLen := int(math.Round(float64(len(input)) * 16000 / 44100))
	if out == nil || len(out) != wantLen {
		t.Fatalf("expected length %d, got %d", wantLen, len(out))
	}
}

func TestResampleMonoPreservesAmplitudeRoughly(t *testing.T) {
	n := 4410
	input := make([]float32, n)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * 220 * float64(i) / 44100))
	}

	out, err := ResampleMono(input, 44100, 22050)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var maxAbs float32
	for _, v := range out[sincHalfTaps : len(out)-sincHalfTaps] {
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	if maxAbs < 0.5 || maxAbs > 1.5 {
		t.Fatalf("resampled amplitude out of expected range: %v", maxAbs)
	}
}

func TestResampleMonoInvalidRate(t *testing.T) {
	if _, err := ResampleMono([]float32{0, 1}, 0, 16000); err != ErrInvalidRate {
		t.Errorf("err = %v, want ErrInvalidRate", err)
	}
	if _, err := ResampleMono([]float32{0, 1}, 16000, -1); err != ErrInvalidRate {
		t.Errorf("err = %v, want ErrInvalidRate", err)
	}
}
