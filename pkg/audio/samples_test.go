package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func closeEnough(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestToFloat32MonoI16(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw[0:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(raw[2:], uint16(int16(-16384)))

	got := ToFloat32Mono(raw, SampleFormatI16, 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if !closeEnough(got[0], 0.5, 0.001) || !closeEnough(got[1], -0.5, 0.001) {
		t.Fatalf("got %v", got)
	}
}

func TestToFloat32MonoDownmixesStereo(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint16(raw[0:], uint16(int16(32767)))
	binary.LittleEndian.PutUint16(raw[2:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(raw[4:], uint16(int16(-32768)))
	binary.LittleEndian.PutUint16(raw[6:], uint16(int16(0)))

	got := ToFloat32Mono(raw, SampleFormatI16, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 mono frames, got %d", len(got))
	}
	if !closeEnough(got[0], 0.5, 0.001) {
		t.Fatalf("frame 0 = %v", got[0])
	}
	if !closeEnough(got[1], -0.5, 0.001) {
		t.Fatalf("frame 1 = %v", got[1])
	}
}

func TestToFloat32MonoF32PassesThrough(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, math.Float32bits(0.25))

	got := ToFloat32Mono(raw, SampleFormatF32, 1)
	if len(got) != 1 || !closeEnough(got[0], 0.25, 1e-6) {
		t.Fatalf("got %v", got)
	}
}

func TestToFloat32MonoU8(t *testing.T) {
	raw := []byte{0, 128, 255}
	got := ToFloat32Mono(raw, SampleFormatU8, 1)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if !closeEnough(got[0], -1, 0.01) || !closeEnough(got[1], 0, 0.01) || !closeEnough(got[2], 0.99, 0.01) {
		t.Fatalf("got %v", got)
	}
}
