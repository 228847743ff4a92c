package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/gopostfx/gpu"
)

// CreateTexture3D uploads an RGB float cube with linear filtering and edge
// clamping on all three axes.
func (d *Device) CreateTexture3D(size int, rgb []float32) (gpu.TextureID, error) {
	if len(rgb) != size*size*size*3 {
		return 0, fmt.Errorf("3D texture of size %d needs %d floats, got %d", size, size*size*size*3, len(rgb))
	}
	var maxSize int32
	gl.GetIntegerv(gl.MAX_3D_TEXTURE_SIZE, &maxSize)
	if size < 2 || size > int(maxSize) {
		return 0, fmt.Errorf("unsupported 3D texture size %d (max %d)", size, maxSize)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.RGB32F, int32(size), int32(size), int32(size), 0, gl.RGB, gl.FLOAT, gl.Ptr(rgb))
	gl.BindTexture(gl.TEXTURE_3D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("3D texture upload failed: 0x%X", e)
	}
	return gpu.TextureID(tex), nil
}

func (d *Device) DeleteTexture(id gpu.TextureID) {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
}

// CreateMesh uploads interleaved position/normal/uv vertices. A nil index
// slice draws the vertices as a triangle list.
func (d *Device) CreateMesh(vertices []float32, indices []uint32) (gpu.MeshID, error) {
	if len(vertices) == 0 || len(vertices)%gpu.MeshStride != 0 {
		return 0, fmt.Errorf("vertex data length %d is not a multiple of %d", len(vertices), gpu.MeshStride)
	}
	m := &mesh{count: int32(len(vertices) / gpu.MeshStride)}
	gl.GenVertexArrays(1, &m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindVertexArray(m.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	const stride = gpu.MeshStride * 4
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))

	if len(indices) > 0 {
		gl.GenBuffers(1, &m.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
		m.count = int32(len(indices))
		m.indexed = true
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	id := gpu.MeshID(d.id())
	d.meshes[id] = m
	return id, nil
}

func (d *Device) DeleteMesh(id gpu.MeshID) {
	m := d.mustMesh(id)
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
	delete(d.meshes, id)
}

func (d *Device) DrawMesh(id gpu.MeshID) {
	m := d.mustMesh(id)
	gl.BindVertexArray(m.vao)
	if m.indexed {
		gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, m.count)
	}
	gl.BindVertexArray(0)
}

func (d *Device) mustMesh(id gpu.MeshID) *mesh {
	m, ok := d.meshes[id]
	if !ok {
		panic(fmt.Sprintf("gldevice: unknown mesh %d", id))
	}
	return m
}
