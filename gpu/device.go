package gpu

import "github.com/go-gl/mathgl/mgl32"

// MeshStride is the number of float32s per mesh vertex: position (3),
// normal (3) and texture coordinate (2).
const MeshStride = 8

// Device is the immediate-mode backend the pipeline submits to. Every call is
// a synchronous submission; a Device keeps no binding discipline of its own,
// that is tracked by Context.
//
// CreateTarget and ResizeTarget must be all-or-nothing: on error no storage
// for the target remains. CompileStage returns *CompileError, LinkProgram
// returns *LinkError and the target calls return *ResourceError.
type Device interface {
	CreateTarget(attachments []Format, width, height int) (TargetID, error)
	ResizeTarget(id TargetID, width, height int) error
	DeleteTarget(id TargetID)
	// AttachmentTexture returns the texture backing attachment index of the
	// target, indexed in the order the attachments were declared.
	AttachmentTexture(id TargetID, index int) TextureID
	BindTarget(id TargetID)
	Viewport(width, height int)
	Clear(color mgl32.Vec4, depth float32)
	SetDepthTest(enabled bool)

	CompileStage(source string, kind StageKind) (StageID, error)
	DeleteStage(id StageID)
	LinkProgram(stages []StageID) (ProgramID, error)
	DeleteProgram(id ProgramID)
	UseProgram(id ProgramID)
	SetUniform(id ProgramID, name string, value any)

	// CreateTexture3D uploads size^3 RGB samples, red varying fastest.
	CreateTexture3D(size int, rgb []float32) (TextureID, error)
	DeleteTexture(id TextureID)
	BindTexture(unit int, kind TextureKind, id TextureID)

	CreateMesh(vertices []float32, indices []uint32) (MeshID, error)
	DeleteMesh(id MeshID)
	DrawMesh(id MeshID)
	DrawFullscreenQuad()

	// ReadPixels reads RGBA8 pixels from the bound target, bottom row first.
	ReadPixels(x, y, width, height int) ([]byte, error)
}
