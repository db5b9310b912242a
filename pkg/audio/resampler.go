package audio

import (
	"errors"
	"sync"

	resampler "github.com/godeps/go-audio-soxr"
)

var errResamplerClosed = errors.New("audio: resampler is closed")

type soxrKey struct {
	inRate  int
	outRate int
}

var soxrPools sync.Map

func soxrPool(key soxrKey) *sync.Pool {
	if pool, ok := soxrPools.Load(key); ok {
		return pool.(*sync.Pool)
	}
	actual, _ := soxrPools.LoadOrStore(key, &sync.Pool{})
	return actual.(*sync.Pool)
}

func acquireSoxr(key soxrKey) (*resampler.SimpleResamplerFloat32, error) {
	if v := soxrPool(key).Get(); v != nil {
		if r, ok := v.(*resampler.SimpleResamplerFloat32); ok && r != nil {
			return r, nil
		}
	}
	return resampler.NewEngineFloat32(float64(key.inRate), float64(key.outRate), resampler.QualityHigh)
}

func releaseSoxr(key soxrKey, r *resampler.SimpleResamplerFloat32) {
	if r == nil {
		return
	}
	r.Reset()
	soxrPool(key).Put(r)
}

// StreamResampler converts a continuous float sample stream captured at one
// rate into PCM16 bytes at another. When both rates match it only quantizes.
type StreamResampler struct {
	mu     sync.Mutex
	key    soxrKey
	r      *resampler.SimpleResamplerFloat32
	closed bool
}

// NewStreamResampler creates a streaming resampler from inRate to outRate.
func NewStreamResampler(inRate, outRate int) (*StreamResampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, errors.New("audio: sample rates must be positive")
	}
	s := &StreamResampler{key: soxrKey{inRate: inRate, outRate: outRate}}
	if inRate == outRate {
		return s, nil
	}
	r, err := acquireSoxr(s.key)
	if err != nil {
		return nil, err
	}
	s.r = r
	return s, nil
}

// Passthrough reports whether the input and output rates are equal.
func (s *StreamResampler) Passthrough() bool {
	return s.key.inRate == s.key.outRate
}

// Convert resamples one chunk and returns the PCM16 bytes produced so far.
func (s *StreamResampler) Convert(samples []float32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errResamplerClosed
	}
	if len(samples) == 0 {
		return nil, nil
	}
	if s.r == nil {
		return PCM16FromFloats(samples).Data, nil
	}
	out, err := s.r.Process(samples)
	if err != nil {
		return nil, err
	}
	return PCM16FromFloats(out).Data, nil
}

// ConvertFloat64 is Convert for samples decoded from JSON.
func (s *StreamResampler) ConvertFloat64(samples []float64) ([]byte, error) {
	tmp := AcquireFloat32(len(samples))
	for i, sample := range samples {
		tmp[i] = float32(sample)
	}
	defer ReleaseFloat32(tmp)
	return s.Convert(tmp)
}

// Flush drains samples still buffered inside the resampler.
func (s *StreamResampler) Flush() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errResamplerClosed
	}
	if s.r == nil {
		return nil, nil
	}
	out, err := s.r.Flush()
	if err != nil {
		return nil, err
	}
	s.r.Reset()
	if len(out) == 0 {
		return nil, nil
	}
	return PCM16FromFloats(out).Data, nil
}

// Close releases the underlying resampler. It is safe to call more than once.
func (s *StreamResampler) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	releaseSoxr(s.key, s.r)
	s.r = nil
}
