package ws

import (
	"math"

	"github.com/saker-ai/realtime-assistant/pkg/audio"
)

// sliceMillis is the playback duration of mono PCM16 bytes at sampleRate.
func sliceMillis(pcmBytes int, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return int(math.Round(float64(pcmBytes/2) * 1000 / float64(sampleRate)))
}

// computeVolumes returns per-frame RMS levels of mono PCM16 normalized to the
// loudest frame, for mouth animation.
func computeVolumes(pcm []byte, sampleRate int, frameMillis int) []float64 {
	samples := audio.BytesToInt16Slice(pcm)
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}
	chunk := sampleRate * frameMillis / 1000
	if chunk <= 0 {
		chunk = len(samples)
	}

	volumes := make([]float64, 0, (len(samples)+chunk-1)/chunk)
	peak := 0.0
	for start := 0; start < len(samples); start += chunk {
		end := min(start+chunk, len(samples))
		v := rms(samples[start:end])
		peak = max(peak, v)
		volumes = append(volumes, v)
	}
	if peak == 0 {
		return volumes
	}
	for i := range volumes {
		volumes[i] /= peak
	}
	return volumes
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
