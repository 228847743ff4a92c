package lut

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
)

func TestTableBindUnbind(t *testing.T) {
	dev := gputest.New(4, 4)
	ctx := gpu.NewContext(dev)
	tbl, err := NewTable(ctx, Identity(4))
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Size())

	tbl.Bind(30)
	assert.True(t, tbl.Bound())
	assert.Equal(t, []int{30}, ctx.BoundUnits())
	assert.Panics(t, func() { tbl.Bind(31) })
	assert.Panics(t, func() { tbl.Unbind(29) })
	tbl.Unbind(30)
	assert.True(t, ctx.Idle())

	tbl.Release()
	tbl.Release()
	assert.Equal(t, 1, dev.Calls.DeleteTexture)
	assert.Zero(t, dev.Live().Textures)
	assert.Panics(t, func() { tbl.Bind(30) })
}

func TestTableRejectsCustomDomain(t *testing.T) {
	c := Identity(2)
	c.DomainMax = [3]float32{2, 2, 2}
	_, err := NewTable(gpu.NewContext(gputest.New(4, 4)), c)
	assert.Error(t, err)
}

func TestCacheLoadAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warm.cube")
	require.NoError(t, os.WriteFile(path, []byte(warm2), 0o644))

	c, err := NewCache(2)
	require.NoError(t, err)

	first, err := c.Load(path)
	require.NoError(t, err)
	again, err := c.Load(filepath.Join(dir, ".", "warm.cube"))
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(warm2, `"Warm"`, `"Warmer"`, 1)), 0o644))
	assert.True(t, c.Invalidate(path))
	reloaded, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Warmer", reloaded.Title)

	_, err = c.Load(filepath.Join(dir, "missing.cube"))
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}
