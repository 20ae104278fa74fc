package audio

import (
	"encoding/binary"
	"math"
)

// ToFloat32Mono converts a block of interleaved PCM captured in one of the
// formats the audio backend can hand back into mono float32 samples in
// [-1, 1], averaging channels down to one when the device is not already
// mono.
func ToFloat32Mono(raw []byte, format SampleFormat, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}

	frames := decodeFrames(raw, format)
	if len(frames) == 0 {
		return nil
	}

	if channels == 1 {
		return frames
	}

	out := make([]float32, 0, len(frames)/channels)
	for i := 0; i+channels <= len(frames); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += frames[i+c]
		}
		out = append(out, sum/float32(channels))
	}
	return out
}

// EncodeS16LE converts mono float32 samples in [-1, 1] into little-endian
// 16-bit PCM, clamping out-of-range values rather than wrapping. This is the
// wire format the realtime STT websocket protocol expects.
func EncodeS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}

// SampleFormat names one of the PCM encodings the capture device may hand
// back.
type SampleFormat int

const (
	SampleFormatI8 SampleFormat = iota
	SampleFormatU8
	SampleFormatI16
	SampleFormatU16
	SampleFormatI32
	SampleFormatU32
	SampleFormatF32
	SampleFormatF64
	// SampleFormatS24 is signed 24-bit PCM packed as 3 little-endian bytes
	// per sample, the form miniaudio negotiates for many USB interfaces.
	SampleFormatS24
)

func decodeFrames(raw []byte, format SampleFormat) []float32 {
	switch format {
	case SampleFormatI8:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = float32(int8(b)) / 128
		}
		return out
	case SampleFormatU8:
		out := make([]float32, len(raw))
		for i, b := range raw {
			out[i] = (float32(b) - 128) / 128
		}
		return out
	case SampleFormatI16:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			out[i] = float32(v) / 32768
		}
		return out
	case SampleFormatU16:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = (float32(v) - 32768) / 32768
		}
		return out
	case SampleFormatI32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(binary.LittleEndian.Uint32(raw[i*4:]))
			out[i] = float32(v) / 2147483648
		}
		return out
	case SampleFormatU32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = (float32(v) - 2147483648) / 2147483648
		}
		return out
	case SampleFormatF64:
		n := len(raw) / 8
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint64(raw[i*8:])
			out[i] = float32(math.Float64frombits(bits))
		}
		return out
	case SampleFormatS24:
		n := len(raw) / 3
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			b := raw[i*3:]
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= -1 << 24 // sign-extend the 24-bit value into int32
			}
			out[i] = float32(v) / 8388608
		}
		return out
	case SampleFormatF32:
		fallthrough
	default:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = math.Float32frombits(bits)
		}
		return out
	}
}
