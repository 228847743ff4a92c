package gpu_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
	"github.com/richinsley/gopostfx/shader"
)

func TestCompileErrorCarriesDiagnostic(t *testing.T) {
	dev := gputest.New(8, 8)
	p := gpu.NewProgram(gpu.NewContext(dev), "broken")

	err := p.AddStage("#version 300 es\n#error missing semicolon\n", gpu.FragmentStage)

	var ce *gpu.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, gpu.FragmentStage, ce.Stage)
	assert.Contains(t, ce.Diagnostic, "0:2")
	assert.Contains(t, ce.Diagnostic, "missing semicolon")
	assert.Zero(t, dev.Live().Stages)
}

func TestLinkErrorCarriesDiagnostic(t *testing.T) {
	dev := gputest.New(8, 8)
	p := gpu.NewProgram(gpu.NewContext(dev), "fragment-only")
	require.NoError(t, p.AddStage(shader.Source(shader.PassthroughFrag), gpu.FragmentStage))

	var le *gpu.LinkError
	require.ErrorAs(t, p.Link(), &le)
	assert.Contains(t, le.Diagnostic, "no vertex shader")
	assert.False(t, p.Linked())
	assert.Panics(t, func() { p.Bind() })

	p.Release()
	assert.Equal(t, gputest.Resources{}, dev.Live())
}

func TestDeferredUniformsReappliedAfterLink(t *testing.T) {
	dev := gputest.New(8, 8)
	p := gpu.NewProgram(gpu.NewContext(dev), "deferred")
	p.SetUniform("u_Tex", int32(3))
	p.SetUniform("u_Color", mgl32.Vec4{1, 0, 0, 1})
	p.SetUniform("u_Tex", int32(4))
	assert.Zero(t, dev.Calls.SetUniform)

	require.NoError(t, p.AddStage(shader.Source(shader.PassthroughVert), gpu.VertexStage))
	require.NoError(t, p.AddStage(gputest.SolidSource, gpu.FragmentStage))
	require.NoError(t, p.Link())

	assert.Equal(t, 2, dev.Calls.SetUniform)
	v, ok := dev.Uniform(p.ID(), "u_Tex")
	require.True(t, ok)
	assert.Equal(t, int32(4), v)
	v, ok = dev.Uniform(p.ID(), "u_Color")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, v)

	// stages are freed by a successful link
	assert.Zero(t, dev.Live().Stages)
}

func TestSetUniformSkipsRedundantUploads(t *testing.T) {
	dev := gputest.New(8, 8)
	p := newSolidProgram(t, gpu.NewContext(dev))

	p.SetUniform("u_Color", mgl32.Vec4{1, 1, 1, 1})
	p.SetUniform("u_Color", mgl32.Vec4{1, 1, 1, 1})
	assert.Equal(t, 1, dev.Calls.SetUniform)

	p.SetUniform("u_Color", mgl32.Vec4{0, 1, 1, 1})
	assert.Equal(t, 2, dev.Calls.SetUniform)

	got, ok := p.Uniform("u_Color")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0, 1, 1, 1}, got)
}

func TestSetUniformRejectsUnsupportedTypes(t *testing.T) {
	p := gpu.NewProgram(gpu.NewContext(gputest.New(8, 8)), "typed")
	assert.Panics(t, func() { p.SetUniform("u_Name", "text") })
	assert.Panics(t, func() { p.SetUniform("u_Scale", 1.0) })
	assert.NotPanics(t, func() { p.SetUniform("u_Scale", float32(1)) })
}

func TestProgramBindIsNotReentrant(t *testing.T) {
	ctx := gpu.NewContext(gputest.New(8, 8))
	a := newSolidProgram(t, ctx)
	b := newPassthrough(t, ctx)

	a.Bind()
	assert.True(t, a.Bound())
	assert.Panics(t, func() { b.Bind() })
	b.Unbind() // not current, ignored
	assert.True(t, a.Bound())
	a.Unbind()
	b.Bind()
	b.Unbind()
	assert.True(t, ctx.Idle())
}

func TestProgramReleaseIsIdempotent(t *testing.T) {
	dev := gputest.New(8, 8)
	ctx := gpu.NewContext(dev)
	p := newSolidProgram(t, ctx)
	p.Bind()

	p.Release()
	p.Release()

	assert.Equal(t, 1, dev.Calls.DeleteProgram)
	assert.Zero(t, dev.Live().Programs)
	assert.True(t, ctx.Idle())
	assert.ErrorIs(t, p.AddStage("", gpu.VertexStage), gpu.ErrReleased)
}
