package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

func writeWavHeader(buf *bytes.Buffer, dataLen, sampleRate, bitsPerSample int, format uint16) {
	blockAlign := bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, format)
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
}

// NewWavBuffer encodes raw 16-bit little-endian mono PCM into a RIFF/WAVE
// container.
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)
	writeWavHeader(buf, len(pcm), sampleRate, 16, wavFormatPCM)
	buf.Write(pcm)
	return buf.Bytes()
}

// NewFloat32WavBuffer encodes mono float32 samples into a 32-bit float
// RIFF/WAVE container, the format the cloud speech-to-text endpoint expects.
func NewFloat32WavBuffer(samples []float32, sampleRate int) []byte {
	dataLen := len(samples) * 4
	buf := new(bytes.Buffer)
	buf.Grow(44 + dataLen)
	writeWavHeader(buf, dataLen, sampleRate, 32, wavFormatFloat)
	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}
