package postfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu/gputest"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/lut"
)

func newPipeline(t *testing.T, f *fixture, cfg Config) *Pipeline {
	t.Helper()
	if cfg.Cubes[grading.Neutral] == nil {
		cfg.Cubes = identityCubes()
	}
	p := NewPipeline(f.lib, cfg)
	w, h := f.dev.ScreenSize()
	require.NoError(t, p.Init(w, h))
	return p
}

// frame renders a solid scene and presents it.
func frame(t *testing.T, f *fixture, p *Pipeline, color mgl32.Vec4) error {
	t.Helper()
	prog := f.solid(t, color)
	p.BeginScene()
	prog.Bind()
	f.ctx.DrawFullscreenQuad()
	prog.Unbind()
	p.EndScene()
	return p.Present()
}

func TestPipelineFrame(t *testing.T) {
	f := newFixture(8, 8)
	p := newPipeline(t, f, Config{BlurPasses: 1, Greyscale: true})
	assert.Len(t, p.Passes(), 4)
	assert.Equal(t, 4, f.lib.Len(), "passthrough, blur, greyscale and color correction")

	color := mgl32.Vec4{0.9, 0.3, 0.6, 1}
	require.NoError(t, frame(t, f, p, color))

	c := gputest.Quantize(color)
	l := c.Vec3().Dot(mgl32.Vec3{0.2126, 0.7152, 0.0722})
	want := gputest.Quantize(mgl32.Vec4{l, l, l, 1})
	got := f.dev.ScreenPixel(3, 5)
	assert.InDeltaSlice(t, want[:], got[:], 2.0/255)

	assert.True(t, f.ctx.Idle())
	assert.Zero(t, f.dev.BoundUnits())
	assert.Zero(t, f.dev.CurrentProgram())
	assert.False(t, f.dev.DepthTest())
}

func TestPipelineClearColor(t *testing.T) {
	f := newFixture(4, 4)
	p := newPipeline(t, f, Config{})
	p.BeginScene()
	assert.True(t, f.dev.DepthTest())
	assert.Panics(t, p.BeginScene)
	p.EndScene()
	assert.Panics(t, p.EndScene)
	require.NoError(t, p.Present())
	assert.Equal(t, gputest.Quantize(DefaultClearColor), f.dev.ScreenPixel(0, 0))
}

func TestPipelinePresentWithoutScene(t *testing.T) {
	f := newFixture(4, 4)
	p := newPipeline(t, f, Config{Greyscale: true})
	assert.ErrorIs(t, p.Present(), ErrOutOfSequence)
	assert.True(t, f.ctx.Idle())

	// a later frame still works
	require.NoError(t, frame(t, f, p, mgl32.Vec4{1, 1, 1, 1}))
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, f.dev.ScreenPixel(1, 1))
}

func TestPipelineSelector(t *testing.T) {
	f := newFixture(4, 4)
	var cubes [grading.Count]*lut.Cube
	colors := [grading.Count]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
	for i, c := range colors {
		cubes[i] = constantCube(2, c)
	}
	p := newPipeline(t, f, Config{Cubes: cubes, Selector: 2})
	assert.Equal(t, grading.Warm, p.Grading().Mode())

	for _, s := range []float32{2, 0, 1.5, 7, -1} {
		p.Grading().SetSelector(s)
		require.NoError(t, frame(t, f, p, mgl32.Vec4{0.5, 0.5, 0.5, 1}))
		m := grading.ModeFor(s)
		assert.Equal(t, colors[m].Vec4(1), f.dev.ScreenPixel(2, 2), "selector %v", s)
	}
}

func TestPipelineInitFailureReleasesEverything(t *testing.T) {
	// targets are created scene, blur, blur ping, greyscale, grading
	for n := 1; n <= 5; n++ {
		f := newFixture(4, 4)
		f.dev.FailTargetAt = n
		p := NewPipeline(f.lib, Config{Cubes: identityCubes(), BlurPasses: 2, Greyscale: true})
		require.Error(t, p.Init(4, 4), "failing target %d", n)
		assert.Equal(t, gputest.Resources{}, f.dev.Live(), "failing target %d", n)
		assert.Zero(t, f.lib.Len())
		p.Release()
	}

	f := newFixture(4, 4)
	cubes := identityCubes()
	cubes[grading.Custom] = nil
	p := NewPipeline(f.lib, Config{Cubes: cubes})
	assert.ErrorContains(t, p.Init(4, 4), "custom")
	assert.Equal(t, gputest.Resources{}, f.dev.Live())
}

func TestPipelineReshape(t *testing.T) {
	f := newFixture(8, 8)
	p := newPipeline(t, f, Config{BlurPasses: 1, Greyscale: true})
	calls := f.dev.Calls.ResizeTarget
	require.NoError(t, p.Reshape(8, 8))
	assert.Equal(t, calls, f.dev.Calls.ResizeTarget, "same size is a no-op")

	require.NoError(t, p.Reshape(12, 6))
	w, h := p.Size()
	assert.Equal(t, [2]int{12, 6}, [2]int{w, h})
	for _, e := range p.Passes() {
		w, h := e.Output().Size()
		assert.Equal(t, [2]int{12, 6}, [2]int{w, h}, e.Name())
	}

	require.NoError(t, frame(t, f, p, mgl32.Vec4{0, 0, 0, 1}))
	w, h = f.dev.ScreenSize()
	assert.Equal(t, [2]int{12, 6}, [2]int{w, h})

	p.BeginScene()
	assert.Panics(t, func() { _ = p.Reshape(4, 4) })
	p.EndScene()
}

func TestPipelineRelease(t *testing.T) {
	f := newFixture(4, 4)
	p := newPipeline(t, f, Config{BlurPasses: 1, Greyscale: true})
	p.BeginScene()
	p.Release()
	p.Release()
	assert.Equal(t, gputest.Resources{}, f.dev.Live())
	assert.True(t, f.ctx.Idle())
}
