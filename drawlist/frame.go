package drawlist

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
)

// Light is a point light with an ambient term.
type Light struct {
	Position         mgl32.Vec3
	Color            mgl32.Vec3
	AmbientLight     float32
	Specular         float32
	AmbientColor     mgl32.Vec3
	Ambient          float32
	ConstantFalloff  float32
	LinearFalloff    float32
	QuadraticFalloff float32
}

// DefaultLight returns the scene light used when none is configured.
func DefaultLight() Light {
	return Light{
		Position:         mgl32.Vec3{0, 0, 2},
		Color:            mgl32.Vec3{0.9, 0.85, 0.5},
		AmbientLight:     0.05,
		Specular:         0,
		AmbientColor:     mgl32.Vec3{1, 1, 1},
		Ambient:          0.1,
		ConstantFalloff:  1,
		LinearFalloff:    0.09,
		QuadraticFalloff: 0.032,
	}
}

// Frame holds the per-frame state every program is set up with when it is
// bound.
type Frame struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	CameraPos  mgl32.Vec3
	Light      Light
}

// Setup uploads the camera and lighting uniforms to prog.
func (f *Frame) Setup(prog *gpu.Program) {
	prog.SetUniform("u_View", f.View)
	prog.SetUniform("u_Projection", f.Projection)
	prog.SetUniform("u_CamPos", f.CameraPos)

	l := f.Light
	prog.SetUniform("u_LightPos", l.Position)
	prog.SetUniform("u_LightCol", l.Color)
	prog.SetUniform("u_AmbientLightStrength", l.AmbientLight)
	prog.SetUniform("u_SpecularLightStrength", l.Specular)
	prog.SetUniform("u_AmbientCol", l.AmbientColor)
	prog.SetUniform("u_AmbientStrength", l.Ambient)
	prog.SetUniform("u_LightAttenuationConstant", l.ConstantFalloff)
	prog.SetUniform("u_LightAttenuationLinear", l.LinearFalloff)
	prog.SetUniform("u_LightAttenuationQuadratic", l.QuadraticFalloff)
}

func (f *Frame) viewProjection() mgl32.Mat4 { return f.Projection.Mul4(f.View) }
