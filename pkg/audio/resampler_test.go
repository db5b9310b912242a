package audio

import "testing"

func TestStreamResamplerPassthrough(t *testing.T) {
	r, err := NewStreamResampler(24000, 24000)
	if err != nil {
		t.Fatalf("NewStreamResampler returned error: %v", err)
	}
	defer r.Close()
	if !r.Passthrough() {
		t.Fatal("Passthrough=false, want true")
	}
	got, err := r.ConvertFloat64([]float64{0, 1.5, -2})
	if err != nil {
		t.Fatalf("ConvertFloat64 returned error: %v", err)
	}
	samples := BytesToInt16Slice(got)
	want := []int16{0, 32767, -32767}
	if len(samples) != len(want) {
		t.Fatalf("samples=%v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples[%d]=%d, want %d", i, samples[i], want[i])
		}
	}
	tail, err := r.Flush()
	if err != nil || tail != nil {
		t.Fatalf("Flush=(%v, %v), want (nil, nil)", tail, err)
	}
}

func TestStreamResamplerDownsample(t *testing.T) {
	r, err := NewStreamResampler(48000, 24000)
	if err != nil {
		t.Fatalf("NewStreamResampler returned error: %v", err)
	}
	defer r.Close()

	in := make([]float32, 4800)
	total := 0
	out, err := r.Convert(in)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	total += len(out)
	tail, err := r.Flush()
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	total += len(tail)
	if total%2 != 0 {
		t.Fatalf("output bytes=%d, want even", total)
	}
	samples := total / 2
	if samples < 2000 || samples > 2800 {
		t.Fatalf("output samples=%d, want about 2400", samples)
	}
}

func TestStreamResamplerClosed(t *testing.T) {
	r, err := NewStreamResampler(16000, 24000)
	if err != nil {
		t.Fatalf("NewStreamResampler returned error: %v", err)
	}
	r.Close()
	r.Close()
	if _, err := r.Convert([]float32{0.1}); err == nil {
		t.Fatal("Convert after Close error=nil, want non-nil")
	}
}

func TestNewStreamResamplerInvalidRate(t *testing.T) {
	if _, err := NewStreamResampler(0, 24000); err == nil {
		t.Fatal("NewStreamResampler(0) error=nil, want non-nil")
	}
}
