package gpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
)

var triangle = []float32{
	0, 0, 0, 0, 0, 1, 0, 0,
	1, 0, 0, 0, 0, 1, 1, 0,
	0, 1, 0, 0, 0, 1, 0, 1,
}

func TestMeshLifecycle(t *testing.T) {
	dev := gputest.NewWithKernels(4, 4)
	ctx := gpu.NewContext(dev)

	_, err := gpu.NewMesh(ctx, "bad", triangle[:7], nil)
	assert.ErrorContains(t, err, "mesh bad")
	_, err = gpu.NewMesh(ctx, "bad", triangle, []uint32{0, 1, 3})
	assert.Error(t, err)

	m, err := gpu.NewMesh(ctx, "tri", triangle, []uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Indices())
	assert.Equal(t, 1, dev.Live().Meshes)

	assert.Panics(t, m.Draw, "no target or program bound")

	target, prog := newTarget(t, ctx, 4, 4), newPassthrough(t, ctx)
	target.Bind()
	prog.Bind()
	m.Draw()
	prog.Unbind()
	target.Unbind()
	assert.Equal(t, []gpu.MeshID{m.ID()}, dev.DrawnMeshes())

	m.Release()
	m.Release()
	assert.Zero(t, dev.Live().Meshes)
	assert.Panics(t, m.Draw)
}
