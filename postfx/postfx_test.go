package postfx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/lut"
	"github.com/richinsley/gopostfx/shader"
)

type fixture struct {
	dev *gputest.Device
	ctx *gpu.Context
	lib *Library
}

func newFixture(w, h int) *fixture {
	dev := gputest.NewWithKernels(w, h)
	ctx := gpu.NewContext(dev)
	ctx.SetScreenSize(w, h)
	return &fixture{dev: dev, ctx: ctx, lib: NewLibrary(ctx, shader.Loader{})}
}

// solid builds a program outside the library that fills with u_Color.
func (f *fixture) solid(t *testing.T, color mgl32.Vec4) *gpu.Program {
	t.Helper()
	p := gpu.NewProgram(f.ctx, "solid")
	require.NoError(t, p.AddStage(shader.Source(shader.PassthroughVert), gpu.VertexStage))
	require.NoError(t, p.AddStage(gputest.SolidSource, gpu.FragmentStage))
	require.NoError(t, p.Link())
	p.SetUniform("u_Color", color)
	t.Cleanup(p.Release)
	return p
}

// fill renders a solid color into slot 0 of a pass and resolves it.
func (f *fixture) fill(t *testing.T, p *Pass, color mgl32.Vec4) {
	t.Helper()
	prog := f.solid(t, color)
	p.ClearAll()
	p.BindBuffer(0)
	prog.Bind()
	f.ctx.DrawFullscreenQuad()
	prog.Unbind()
	p.UnbindBuffer()
}

// affineCube returns a table computing scale*c + offset per channel.
func affineCube(size int, scale, offset float32) *lut.Cube {
	c := lut.Identity(size)
	for i := range c.Data {
		c.Data[i] = c.Data[i]*scale + offset
	}
	return c
}

// constantCube returns a table mapping every color to v.
func constantCube(size int, v mgl32.Vec3) *lut.Cube {
	c := lut.Identity(size)
	for i := 0; i < len(c.Data); i += 3 {
		c.Data[i], c.Data[i+1], c.Data[i+2] = v[0], v[1], v[2]
	}
	return c
}

func identityCubes() [grading.Count]*lut.Cube {
	var cubes [grading.Count]*lut.Cube
	for i := range cubes {
		cubes[i] = lut.Identity(4)
	}
	return cubes
}
