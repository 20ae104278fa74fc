package audio

import (
	"bytes"
	"testing"
)

func TestNewWavBuffer(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	sampleRate := 44100
	wav := NewWavBuffer(pcm, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("Expected RIFF prefix")
	}

	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("Expected WAVE format identifier")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("Expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestNewFloat32WavBuffer(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	sampleRate := 16000
	wav := NewFloat32WavBuffer(samples, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("Expected RIFF prefix")
	}

	expectedLen := 44 + len(samples)*4
	if len(wav) != expectedLen {
		t.Errorf("Expected length %d, got %d", expectedLen, len(wav))
	}

	// fmt chunk: bits per sample (16-bit LE uint at offset 34) must be 32,
	// and the format tag (offset 20) must be 3 (IEEE float).
	if wav[20] != 3 || wav[21] != 0 {
		t.Errorf("expected format tag 3 (float), got %d %d", wav[20], wav[21])
	}
	if wav[34] != 32 || wav[35] != 0 {
		t.Errorf("expected bitsPerSample 32, got %d %d", wav[34], wav[35])
	}
}
