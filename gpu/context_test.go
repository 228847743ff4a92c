package gpu_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
)

func TestContextTracksBindings(t *testing.T) {
	dev := gputest.New(16, 9)
	ctx := gpu.NewContext(dev)
	ctx.SetScreenSize(16, 9)
	assert.True(t, ctx.Idle())

	ctx.BindScreen()
	id, ok := ctx.BoundTarget()
	assert.True(t, ok)
	assert.Equal(t, gpu.Screen, id)
	assert.False(t, ctx.Idle())
	ctx.Clear(mgl32.Vec4{1, 0, 0, 1}, 1)
	ctx.UnbindTarget()

	tex, err := dev.CreateTexture3D(2, make([]float32, 2*2*2*3))
	assert.NoError(t, err)
	ctx.BindTexture(7, gpu.Texture3D, tex)
	ctx.BindTexture(2, gpu.Texture3D, tex)
	assert.Equal(t, []int{2, 7}, ctx.BoundUnits())
	assert.Panics(t, func() { ctx.BindTexture(7, gpu.Texture3D, tex) })
	ctx.UnbindTexture(7)
	ctx.UnbindTexture(7)
	ctx.UnbindTexture(2)

	assert.True(t, ctx.Idle())
	assert.Zero(t, dev.BoundUnits())
	assert.Equal(t, gpu.Counters{TargetBinds: 1, TextureBinds: 2, Clears: 1}, ctx.Counters())

	ctx.ResetCounters()
	assert.Equal(t, gpu.Counters{}, ctx.Counters())
}

func TestDrawRequiresTargetAndProgram(t *testing.T) {
	ctx := gpu.NewContext(gputest.New(8, 8))
	assert.Panics(t, func() { ctx.DrawFullscreenQuad() })
	assert.Panics(t, func() { ctx.Clear(mgl32.Vec4{}, 1) })

	ctx.BindScreen()
	assert.Panics(t, func() { ctx.DrawMesh(1) })
	assert.Panics(t, func() { ctx.UseProgram(0) })
	ctx.UnbindTarget()
}

func TestSetDepthTestSkipsRedundantState(t *testing.T) {
	dev := gputest.New(8, 8)
	ctx := gpu.NewContext(dev)
	ctx.SetDepthTest(true)
	assert.True(t, dev.DepthTest())
	ctx.SetDepthTest(false)
	assert.False(t, dev.DepthTest())
}

func TestContextReadPixels(t *testing.T) {
	dev := gputest.New(2, 2)
	ctx := gpu.NewContext(dev)
	ctx.SetScreenSize(2, 2)
	assert.Panics(t, func() { _, _ = ctx.ReadPixels(0, 0, 2, 2) })

	ctx.BindScreen()
	ctx.Clear(mgl32.Vec4{1, 0, 0, 1}, 1)
	pix, err := ctx.ReadPixels(0, 0, 2, 2)
	ctx.UnbindTarget()
	assert.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 255}, pix[:4])
	assert.Len(t, pix, 16)
}
