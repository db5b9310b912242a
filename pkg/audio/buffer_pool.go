package audio

import "sync"

// micFrameSamples covers a 100 ms browser mic frame at 48 kHz.
const micFrameSamples = 4800

// scratch holds float32 buffers used to widen float64 mic frames before
// resampling. Pointers avoid an allocation per Put.
var scratch = sync.Pool{
	New: func() any {
		buf := make([]float32, 0, micFrameSamples)
		return &buf
	},
}

// AcquireFloat32 returns a scratch slice of length size. Pass it back with
// ReleaseFloat32 once the samples have been consumed.
func AcquireFloat32(size int) []float32 {
	if size <= 0 {
		return nil
	}
	bp := scratch.Get().(*[]float32)
	if cap(*bp) < size {
		*bp = make([]float32, size)
	}
	return (*bp)[:size]
}

// ReleaseFloat32 returns buf to the scratch pool.
func ReleaseFloat32(buf []float32) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	scratch.Put(&buf)
}
