package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrTypeMismatch reports an operation on a buffer that does not hold 16-bit PCM.
var ErrTypeMismatch = errors.New("audio: buffer is not 16-bit pcm")

// SampleFormat identifies the element type of a SampleBuffer.
type SampleFormat int

const (
	FormatPCM16 SampleFormat = iota
	FormatFloat32
	FormatUint8
)

func (f SampleFormat) String() string {
	switch f {
	case FormatPCM16:
		return "pcm16"
	case FormatFloat32:
		return "float32"
	case FormatUint8:
		return "uint8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// SampleBuffer is raw audio bytes tagged with their sample format.
type SampleBuffer struct {
	Format SampleFormat
	Data   []byte
}

// PCM16 wraps little-endian 16-bit samples.
func PCM16(data []byte) SampleBuffer {
	return SampleBuffer{Format: FormatPCM16, Data: data}
}

// PCM16FromSamples packs int16 samples into a PCM16 buffer.
func PCM16FromSamples(samples []int16) SampleBuffer {
	return PCM16(Int16SliceToBytesInto(nil, samples))
}

// PCM16FromFloats quantizes float samples into a PCM16 buffer.
func PCM16FromFloats(samples []float32) SampleBuffer {
	pcm := Float32SliceToInt16SliceInto(nil, samples)
	return PCM16FromSamples(pcm)
}

// Len returns the byte length of the buffer.
func (b SampleBuffer) Len() int {
	return len(b.Data)
}

// CheckPCM16 returns ErrTypeMismatch unless b holds whole 16-bit samples.
func (b SampleBuffer) CheckPCM16() error {
	if b.Format != FormatPCM16 || len(b.Data)%2 != 0 {
		return fmt.Errorf("%s buffer of %d bytes: %w", b.Format, len(b.Data), ErrTypeMismatch)
	}
	return nil
}

// ConcatPCM16 joins two PCM16 buffers. Both operands must be 16-bit PCM with
// an even byte length.
func ConcatPCM16(left, right SampleBuffer) (SampleBuffer, error) {
	if err := left.CheckPCM16(); err != nil {
		return SampleBuffer{}, fmt.Errorf("concat left operand: %w", err)
	}
	if err := right.CheckPCM16(); err != nil {
		return SampleBuffer{}, fmt.Errorf("concat right operand: %w", err)
	}
	out := make([]byte, 0, len(left.Data)+len(right.Data))
	out = append(out, left.Data...)
	out = append(out, right.Data...)
	return PCM16(out), nil
}

// EncodeBase64 encodes raw bytes as standard base64 transport text.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes standard base64 transport text.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return data, nil
}
