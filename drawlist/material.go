// Package drawlist orders scene draw commands to minimise program binds and
// material changes, then issues them.
package drawlist

import (
	"fmt"
	"sync/atomic"

	"github.com/richinsley/gopostfx/gpu"
)

var materialIDs atomic.Uint64

type uniform struct {
	name  string
	value any
}

type texture struct {
	unit int
	kind gpu.TextureKind
	id   gpu.TextureID
}

// Material is the uniform values and textures a program draws with. Each
// material has a unique, increasing identity used as the last sort key.
type Material struct {
	id       uint64
	name     string
	program  *gpu.Program
	layer    int
	uniforms []uniform
	textures []texture
	applied  bool
}

// NewMaterial returns a material drawn by program on the given render layer.
// Lower layers draw first.
func NewMaterial(name string, program *gpu.Program, layer int) *Material {
	if program == nil {
		panic(fmt.Sprintf("drawlist: material %s has no program", name))
	}
	return &Material{
		id:      materialIDs.Add(1),
		name:    name,
		program: program,
		layer:   layer,
	}
}

func (m *Material) ID() uint64            { return m.id }
func (m *Material) Name() string          { return m.name }
func (m *Material) Program() *gpu.Program { return m.program }
func (m *Material) RenderLayer() int      { return m.layer }

// Set records a uniform value uploaded when the material is applied. It
// panics on a type the device cannot upload.
func (m *Material) Set(name string, value any) {
	if err := gpu.CheckUniform(value); err != nil {
		panic(fmt.Sprintf("drawlist: material %s: %v (uniform %q)", m.name, err, name))
	}
	for i := range m.uniforms {
		if m.uniforms[i].name == name {
			m.uniforms[i].value = value
			return
		}
	}
	m.uniforms = append(m.uniforms, uniform{name, value})
}

// Get returns a recorded uniform value.
func (m *Material) Get(name string) (any, bool) {
	for _, u := range m.uniforms {
		if u.name == name {
			return u.value, true
		}
	}
	return nil, false
}

// SetTexture binds tex to unit while the material is applied and points the
// sampler uniform name at that unit.
func (m *Material) SetTexture(name string, unit int, kind gpu.TextureKind, tex gpu.TextureID) {
	if tex == 0 {
		panic(fmt.Sprintf("drawlist: material %s: zero texture for %q", m.name, name))
	}
	m.Set(name, int32(unit))
	for i := range m.textures {
		if m.textures[i].unit == unit {
			m.textures[i] = texture{unit, kind, tex}
			return
		}
	}
	m.textures = append(m.textures, texture{unit, kind, tex})
}

// Apply uploads the uniforms and binds the textures. The material's program
// must be bound.
func (m *Material) Apply(ctx *gpu.Context) {
	if !m.program.Bound() {
		panic(fmt.Sprintf("drawlist: material %s applied without its program bound", m.name))
	}
	if m.applied {
		panic(fmt.Sprintf("drawlist: material %s applied twice", m.name))
	}
	for _, u := range m.uniforms {
		m.program.SetUniform(u.name, u.value)
	}
	for _, t := range m.textures {
		ctx.BindTexture(t.unit, t.kind, t.id)
	}
	m.applied = true
}

// Unapply unbinds the material's textures. It does nothing if the material
// is not applied.
func (m *Material) Unapply(ctx *gpu.Context) {
	if !m.applied {
		return
	}
	for _, t := range m.textures {
		ctx.UnbindTexture(t.unit)
	}
	m.applied = false
}

func (m *Material) Applied() bool { return m.applied }
