package lut

import (
	"fmt"

	"github.com/richinsley/gopostfx/gpu"
)

// Table is a Cube uploaded as a 3D texture.
type Table struct {
	ctx   *gpu.Context
	tex   gpu.TextureID
	size  int
	title string
	unit  int
	bound bool
}

// NewTable uploads cube. Only tables over the unit domain can be sampled
// with normalized colors; any other domain is rejected.
func NewTable(ctx *gpu.Context, cube *Cube) (*Table, error) {
	if cube.DomainMin != [3]float32{} || cube.DomainMax != [3]float32{1, 1, 1} {
		return nil, fmt.Errorf("lut: %q: domain %v..%v is not supported", cube.Title, cube.DomainMin, cube.DomainMax)
	}
	tex, err := ctx.Device().CreateTexture3D(cube.Size, cube.Data)
	if err != nil {
		return nil, fmt.Errorf("lut: failed to upload %q: %w", cube.Title, err)
	}
	return &Table{ctx: ctx, tex: tex, size: cube.Size, title: cube.Title}, nil
}

// Bind exposes the table on a sampler unit. A table is bound to at most one
// unit at a time.
func (t *Table) Bind(unit int) {
	if t.tex == 0 {
		panic(fmt.Sprintf("lut: %q bound after release", t.title))
	}
	if t.bound {
		panic(fmt.Sprintf("lut: %q is already bound to unit %d", t.title, t.unit))
	}
	t.ctx.BindTexture(unit, gpu.Texture3D, t.tex)
	t.unit = unit
	t.bound = true
}

// Unbind clears the unit the table was bound to. unit must match Bind.
func (t *Table) Unbind(unit int) {
	if !t.bound {
		return
	}
	if unit != t.unit {
		panic(fmt.Sprintf("lut: %q unbound from unit %d, bound to %d", t.title, unit, t.unit))
	}
	t.ctx.UnbindTexture(unit)
	t.bound = false
}

func (t *Table) Bound() bool   { return t.bound }
func (t *Table) Size() int     { return t.size }
func (t *Table) Title() string { return t.title }

// Release deletes the texture. It is safe to call more than once.
func (t *Table) Release() {
	if t.tex == 0 {
		return
	}
	t.Unbind(t.unit)
	t.ctx.Device().DeleteTexture(t.tex)
	t.tex = 0
}
