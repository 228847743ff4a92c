// Package gldevice implements gpu.Device on OpenGL 4.1 core.
//
// A Device must be created and used on the thread that owns the current GL
// context.
package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/logger"
	"go.uber.org/zap"
)

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

type stage struct {
	shader uint32
	kind   gpu.StageKind
	names  map[string]string
}

type program struct {
	handle    uint32
	names     map[string]string
	locations map[string]int32
}

type mesh struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

// Device is the OpenGL backend.
type Device struct {
	gles bool

	quadVAO uint32
	quadVBO uint32

	targets  map[gpu.TargetID]*target
	stages   map[gpu.StageID]*stage
	programs map[gpu.ProgramID]*program
	meshes   map[gpu.MeshID]*mesh
	nextID   uint32

	depthTest bool
}

var _ gpu.Device = (*Device)(nil)

// New initializes the GL bindings for the current context and creates the
// shared fullscreen quad. gles selects ESSL as the shader output dialect.
func New(gles bool) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	d := &Device{
		gles:     gles,
		targets:  make(map[gpu.TargetID]*target),
		stages:   make(map[gpu.StageID]*stage),
		programs: make(map[gpu.ProgramID]*program),
		meshes:   make(map[gpu.MeshID]*mesh),
	}

	gl.GenVertexArrays(1, &d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindVertexArray(d.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.DepthFunc(gl.LEQUAL)
	gl.Disable(gl.DEPTH_TEST)
	return d, nil
}

// Destroy deletes the device's own objects. Resources created through the
// gpu.Device methods are owned by their callers.
func (d *Device) Destroy() {
	gl.DeleteBuffers(1, &d.quadVBO)
	gl.DeleteVertexArrays(1, &d.quadVAO)
	if n := len(d.targets) + len(d.programs) + len(d.meshes); n > 0 {
		logger.Log.Warn("OpenGL device destroyed with live resources", zap.Int("count", n))
	}
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *Device) Clear(color mgl32.Vec4, depth float32) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.ClearDepth(float64(depth))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *Device) SetDepthTest(enabled bool) {
	d.depthTest = enabled
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
}

// DrawFullscreenQuad draws the covering quad with depth testing off, then
// restores the depth state.
func (d *Device) DrawFullscreenQuad() {
	if d.depthTest {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	if d.depthTest {
		gl.Enable(gl.DEPTH_TEST)
	}
}

func (d *Device) BindTexture(unit int, kind gpu.TextureKind, id gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(textureTarget(kind), uint32(id))
	gl.ActiveTexture(gl.TEXTURE0)
}

func textureTarget(kind gpu.TextureKind) uint32 {
	if kind == gpu.Texture3D {
		return gl.TEXTURE_3D
	}
	return gl.TEXTURE_2D
}

// ReadPixels reads RGBA8 pixels from the bound framebuffer.
func (d *Device) ReadPixels(x, y, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid read size %dx%d", width, height)
	}
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("glReadPixels failed: 0x%X", e)
	}
	return pixels, nil
}
