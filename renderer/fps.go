package renderer

import "github.com/chewxy/math32"

const fpsSamples = 128

// maxFrameTime caps the time step a single frame advances the scene by.
const maxFrameTime = 1

// FPS is a ring of the last fpsSamples frame rates.
type FPS struct {
	samples [fpsSamples]float32
	next    int
	count   int
}

// Add records a frame time in seconds and returns it clamped to at most one
// second. Non-positive times are not recorded and return 0.
func (f *FPS) Add(dt float32) float32 {
	if dt <= 0 || math32.IsNaN(dt) {
		return 0
	}
	dt = math32.Min(dt, maxFrameTime)
	f.samples[f.next] = 1 / dt
	f.next = (f.next + 1) % fpsSamples
	f.count = min(f.count+1, fpsSamples)
	return dt
}

func (f *FPS) Len() int { return f.count }

// Stats returns the minimum, maximum and average frame rate in the ring.
func (f *FPS) Stats() (lo, hi, avg float32) {
	if f.count == 0 {
		return 0, 0, 0
	}
	lo, hi = math32.Inf(1), math32.Inf(-1)
	var sum float32
	for _, s := range f.samples[:f.count] {
		lo = math32.Min(lo, s)
		hi = math32.Max(hi, s)
		sum += s
	}
	return lo, hi, sum / float32(f.count)
}
