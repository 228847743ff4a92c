package gpu

import "fmt"

// Format is the semantic tag of a render target attachment. Devices map it to
// their native storage format.
type Format int

const (
	FormatRGBA8 Format = iota + 1
	FormatDepth24
)

func (f Format) IsColor() bool { return f == FormatRGBA8 }
func (f Format) IsDepth() bool { return f == FormatDepth24 }

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatDepth24:
		return "depth24"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// StageKind identifies a shader stage.
type StageKind int

const (
	VertexStage StageKind = iota + 1
	FragmentStage
)

func (k StageKind) String() string {
	switch k {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(k))
	}
}

// TextureKind is the sampler dimensionality a texture is bound with.
type TextureKind int

const (
	Texture2D TextureKind = iota + 1
	Texture3D
)

// Device handles. The zero value of every handle means "none".
type (
	TargetID  uint32
	TextureID uint32
	StageID   uint32
	ProgramID uint32
	MeshID    uint32
)

// Screen is the default framebuffer.
const Screen TargetID = 0
