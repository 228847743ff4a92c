package gpu

import (
	"fmt"

	"github.com/richinsley/gopostfx/logger"
	"go.uber.org/zap"
)

// Mesh is indexed triangle geometry uploaded to the device. Vertices are
// interleaved position, normal and texture coordinate, MeshStride floats
// each.
type Mesh struct {
	ctx     *Context
	name    string
	id      MeshID
	indices int
}

// NewMesh uploads vertices and indices. Indices must address the vertex data.
func NewMesh(ctx *Context, name string, vertices []float32, indices []uint32) (*Mesh, error) {
	id, err := ctx.dev.CreateMesh(vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("gpu: mesh %s: %w", name, err)
	}
	logger.Log.Debug("mesh uploaded",
		zap.String("mesh", name),
		zap.Int("vertices", len(vertices)/MeshStride),
		zap.Int("indices", len(indices)))
	return &Mesh{ctx: ctx, name: name, id: id, indices: len(indices)}, nil
}

func (m *Mesh) ID() MeshID   { return m.id }
func (m *Mesh) Name() string { return m.name }

// Indices is the number of indices drawn per Draw.
func (m *Mesh) Indices() int { return m.indices }

// Draw issues the mesh with the bound program into the bound target.
func (m *Mesh) Draw() {
	if m.id == 0 {
		panic(fmt.Sprintf("gpu: drawing released mesh %s", m.name))
	}
	m.ctx.DrawMesh(m.id)
}

// Release frees the mesh. It is safe to call more than once.
func (m *Mesh) Release() {
	if m.id == 0 {
		return
	}
	m.ctx.dev.DeleteMesh(m.id)
	m.id = 0
}
