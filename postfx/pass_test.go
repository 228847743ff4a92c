package postfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/lut"
	"github.com/richinsley/gopostfx/shader"
)

func TestPassInitAllocatesSlotZero(t *testing.T) {
	f := newFixture(32, 16)
	p := NewPass(f.lib, "base")
	require.NoError(t, p.Init(32, 16))

	out := p.Target(0)
	assert.Equal(t, []gpu.Format{gpu.FormatRGBA8, gpu.FormatDepth24}, out.Attachments())
	assert.Same(t, out, p.Output())
	prog, err := f.lib.Program(shader.PassthroughVert, shader.PassthroughFrag)
	require.NoError(t, err)
	assert.Same(t, prog, p.Program(0))

	assert.Panics(t, func() { p.Target(1) })
	assert.Panics(t, func() { p.Program(1) })
	assert.Panics(t, func() { _ = p.Init(32, 16) })

	p.Release()
	p.Release()
	assert.Zero(t, f.dev.Live().Targets)
	assert.Equal(t, 1, f.dev.Live().Programs, "programs belong to the library")
	f.lib.Release()
	assert.Equal(t, gputest.Resources{}, f.dev.Live())
}

func TestChainComposesPassTransforms(t *testing.T) {
	f := newFixture(8, 8)
	scene := NewPass(f.lib, "scene")
	grey := NewGreyscale(f.lib)
	blur := NewBlur(f.lib, 2)
	var cubes [grading.Count]*lut.Cube
	for i := range cubes {
		cubes[i] = affineCube(5, 0.5, 0.25)
	}
	grade := NewColorGrading(f.lib, cubes, DefaultLUTUnit)
	for _, e := range []Effect{scene, grey, blur, grade} {
		require.NoError(t, e.Init(8, 8))
	}

	color := mgl32.Vec4{0.9, 0.3, 0.6, 1}
	f.fill(t, scene, color)
	require.NoError(t, grey.ApplyEffect(scene))
	require.NoError(t, blur.ApplyEffect(grey))
	require.NoError(t, grade.ApplyEffect(blur))
	require.NoError(t, grade.DrawToScreen())

	// The scene holds the quantized color and greyscale its luma. Blurring a
	// uniform image leaves it unchanged and the table computes 0.5*c + 0.25.
	c := gputest.Quantize(color)
	l := c.Vec3().Dot(mgl32.Vec3{0.2126, 0.7152, 0.0722})
	g := gputest.Quantize(mgl32.Vec4{l, l, l, c.W()})
	graded := 0.5*g.X() + 0.25
	want := gputest.Quantize(mgl32.Vec4{graded, graded, graded, 1})

	for _, xy := range [][2]int{{0, 0}, {4, 4}, {7, 7}} {
		got := f.dev.ScreenPixel(xy[0], xy[1])
		assert.InDeltaSlice(t, want[:], got[:], 1.0/255+1e-6)
	}
	assert.True(t, f.ctx.Idle())
}

func TestPassthroughChainIsExact(t *testing.T) {
	f := newFixture(4, 4)
	passes := []*Pass{NewPass(f.lib, "a"), NewPass(f.lib, "b"), NewPass(f.lib, "c")}
	for _, p := range passes {
		require.NoError(t, p.Init(4, 4))
	}
	color := mgl32.Vec4{0.2, 0.4, 0.6, 0.8}
	f.fill(t, passes[0], color)
	require.NoError(t, passes[1].ApplyEffect(passes[0]))
	require.NoError(t, passes[2].ApplyEffect(passes[1]))
	require.NoError(t, passes[2].DrawToScreen())

	assert.Equal(t, gputest.Quantize(color), f.dev.ScreenPixel(2, 2))
	assert.Equal(t, 1, f.lib.Len(), "passes share the passthrough program")
}

func TestOutOfSequence(t *testing.T) {
	f := newFixture(4, 4)
	a, b, c := NewPass(f.lib, "a"), NewPass(f.lib, "b"), NewPass(f.lib, "c")
	assert.ErrorIs(t, b.ApplyEffect(a), ErrOutOfSequence, "not initialized")
	for _, p := range []*Pass{a, b, c} {
		require.NoError(t, p.Init(4, 4))
	}

	assert.ErrorIs(t, b.ApplyEffect(a), ErrOutOfSequence, "input not resolved")
	assert.ErrorIs(t, a.DrawToScreen(), ErrOutOfSequence, "nothing resolved")
	assert.ErrorIs(t, a.ApplyEffect(a), ErrOutOfSequence)
	assert.ErrorIs(t, a.ApplyEffect(nil), ErrOutOfSequence)

	f.fill(t, a, mgl32.Vec4{1, 0, 0, 1})
	require.NoError(t, b.ApplyEffect(a))
	assert.ErrorIs(t, a.DrawToScreen(), ErrOutOfSequence, "a is not terminal")
	assert.ErrorIs(t, c.DrawToScreen(), ErrOutOfSequence, "c skipped")
	require.NoError(t, c.ApplyEffect(b))
	require.NoError(t, c.DrawToScreen())

	// a new frame starts unresolved
	for _, p := range []*Pass{a, b, c} {
		p.ClearAll()
	}
	assert.ErrorIs(t, b.ApplyEffect(a), ErrOutOfSequence)
	assert.True(t, f.ctx.Idle())
}

func TestColorGradingSelectsOneTable(t *testing.T) {
	colors := [grading.Count]mgl32.Vec3{
		{0.2, 0.2, 0.2},
		{0.0, 0.4, 0.8},
		{0.8, 0.4, 0.0},
		{1.0, 0.0, 1.0},
	}
	var cubes [grading.Count]*lut.Cube
	for i, c := range colors {
		cubes[i] = constantCube(2, c)
	}

	tests := []struct {
		selector float32
		want     grading.Mode
	}{
		{0, grading.Neutral},
		{0.99, grading.Neutral},
		{1, grading.Cool},
		{2, grading.Warm},
		{2.5, grading.Warm},
		{3, grading.Custom},
	}
	for _, tt := range tests {
		f := newFixture(4, 4)
		scene := NewPass(f.lib, "scene")
		grade := NewColorGrading(f.lib, cubes, 7)
		require.NoError(t, scene.Init(4, 4))
		require.NoError(t, grade.Init(4, 4))
		grade.SetSelector(tt.selector)
		assert.Equal(t, tt.want, grade.Mode())

		f.ctx.ResetCounters()
		f.fill(t, scene, mgl32.Vec4{0.5, 0.5, 0.5, 1})
		require.NoError(t, grade.ApplyEffect(scene))
		require.NoError(t, grade.DrawToScreen())

		want := gputest.Quantize(colors[tt.want].Vec4(1))
		assert.Equal(t, want, f.dev.ScreenPixel(1, 1), "selector %v", tt.selector)
		assert.Zero(t, f.dev.BoundUnits())
		for m := grading.Neutral; m <= grading.Custom; m++ {
			assert.False(t, grade.Table(m).Bound())
		}
		// input + table in the grading draw, output when presenting
		assert.Equal(t, 3, f.ctx.Counters().TextureBinds)
	}
}

func TestColorGradingInitFailures(t *testing.T) {
	f := newFixture(4, 4)
	cubes := identityCubes()
	cubes[grading.Warm] = nil
	g := NewColorGrading(f.lib, cubes, DefaultLUTUnit)
	assert.ErrorContains(t, g.Init(4, 4), "warm")
	assert.Equal(t, gputest.Resources{}, f.dev.Live())

	g = NewColorGrading(f.lib, identityCubes(), InputUnit)
	assert.Error(t, g.Init(4, 4))

	bad := identityCubes()
	bad[grading.Custom].DomainMin = [3]float32{-1, -1, -1}
	g = NewColorGrading(f.lib, bad, DefaultLUTUnit)
	assert.ErrorContains(t, g.Init(4, 4), "custom")
	assert.Zero(t, f.dev.Live().Targets)
	assert.Zero(t, f.dev.Live().Textures)
}

func TestColorGradingReplaceCube(t *testing.T) {
	f := newFixture(4, 4)
	scene := NewPass(f.lib, "scene")
	grade := NewColorGrading(f.lib, identityCubes(), DefaultLUTUnit)
	require.NoError(t, scene.Init(4, 4))
	require.NoError(t, grade.Init(4, 4))
	grade.SetMode(grading.Cool)

	require.NoError(t, grade.ReplaceCube(grading.Cool, constantCube(2, mgl32.Vec3{0, 1, 0})))
	assert.Equal(t, grading.Count, f.dev.Live().Textures)

	f.fill(t, scene, mgl32.Vec4{0.5, 0.5, 0.5, 1})
	require.NoError(t, grade.ApplyEffect(scene))
	require.NoError(t, grade.DrawToScreen())
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, f.dev.ScreenPixel(0, 0))

	bad := lut.Identity(2)
	bad.DomainMax = [3]float32{2, 2, 2}
	assert.Error(t, grade.ReplaceCube(grading.Cool, bad))
	assert.Equal(t, 2, grade.Table(grading.Cool).Size(), "old table kept")
	assert.Error(t, grade.ReplaceCube(grading.Mode(9), bad))
}

func TestBlurPingPong(t *testing.T) {
	f := newFixture(16, 1)
	scene := NewPass(f.lib, "scene")
	blur := NewBlur(f.lib, 1)
	require.NoError(t, scene.Init(16, 1))
	require.NoError(t, blur.Init(16, 1))
	assert.Equal(t, []gpu.Format{gpu.FormatRGBA8}, blur.Target(1).Attachments(), "ping target has no depth")

	f.fill(t, scene, mgl32.Vec4{1, 1, 1, 1})
	f.ctx.ResetCounters()
	require.NoError(t, blur.ApplyEffect(scene))
	assert.Equal(t, 2, f.ctx.Counters().Draws)

	v, ok := f.dev.Uniform(blur.Program(1).ID(), "u_Direction")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec2{0, 1}, v)

	none := NewBlur(f.lib, 0)
	require.NoError(t, none.Init(16, 1))
	f.ctx.ResetCounters()
	require.NoError(t, none.ApplyEffect(blur))
	assert.Equal(t, 1, f.ctx.Counters().Draws)
}

func TestReshapePropagates(t *testing.T) {
	f := newFixture(8, 8)
	b := NewBlur(f.lib, 1)
	require.NoError(t, b.Init(8, 8))
	require.NoError(t, b.Reshape(20, 10))

	for i := 0; i < 2; i++ {
		w, h := b.Target(i).Size()
		assert.Equal(t, [2]int{20, 10}, [2]int{w, h})
	}
	w, h := b.Size()
	assert.Equal(t, [2]int{20, 10}, [2]int{w, h})

	f.dev.MaxSize = 16
	assert.Error(t, b.Reshape(32, 32))
	b.Release()
	assert.Zero(t, f.dev.Live().Targets)
}
