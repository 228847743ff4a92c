package scene

import "github.com/go-gl/mathgl/mgl32"

// Camera is a perspective camera looking at a fixed point.
type Camera struct {
	Position   mgl32.Vec3
	Target     mgl32.Vec3
	Up         mgl32.Vec3
	FovDegrees float32
	Near       float32
	Far        float32
	Aspect     float32
}

// NewCamera returns the default camera: above and behind the origin, Z up,
// with a 90 degree field of view.
func NewCamera() Camera {
	return Camera{
		Position:   mgl32.Vec3{0, 3, 3},
		Up:         mgl32.Vec3{0, 0, 1},
		FovDegrees: 90,
		Near:       0.01,
		Far:        1000,
		Aspect:     1,
	}
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), c.Aspect, c.Near, c.Far)
}

// SetViewport updates the aspect ratio. Degenerate sizes are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}
