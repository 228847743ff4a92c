package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// CheckUniform reports whether value has a type a Device can upload.
func CheckUniform(value any) error {
	switch value.(type) {
	case float32, int32, int, bool,
		mgl32.Vec2, mgl32.Vec3, mgl32.Vec4,
		mgl32.Mat3, mgl32.Mat4:
		return nil
	default:
		return fmt.Errorf("gpu: unsupported uniform type %T", value)
	}
}
