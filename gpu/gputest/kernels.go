package gputest

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/shader"
)

var blurWeights = [5]float32{0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216}

// Passthrough samples u_Tex.
func Passthrough(f *Fragment) mgl32.Vec4 {
	return f.Sample2D(f.Int("u_Tex"))
}

// ColorCorrection looks the u_Tex color up in the u_Lut cube.
func ColorCorrection(f *Fragment) mgl32.Vec4 {
	src := f.Sample2D(f.Int("u_Tex"))
	lut := f.Int("u_Lut")
	n, _ := f.Size(lut)
	if n == 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	size := float32(n)
	coord := src.Vec3().Mul((size - 1) / size).Add(mgl32.Vec3{0.5 / size, 0.5 / size, 0.5 / size})
	graded := f.Sample3D(lut, coord)
	return graded.Vec3().Vec4(src.W())
}

// Greyscale replaces the color of u_Tex by its Rec. 709 luma.
func Greyscale(f *Fragment) mgl32.Vec4 {
	src := f.Sample2D(f.Int("u_Tex"))
	l := src.Vec3().Dot(mgl32.Vec3{0.2126, 0.7152, 0.0722})
	return mgl32.Vec4{l, l, l, src.W()}
}

// Blur is one direction of the separable Gaussian along u_Direction.
func Blur(f *Fragment) mgl32.Vec4 {
	unit := f.Int("u_Tex")
	w, h := f.Size(unit)
	if w == 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	dir := f.Vec2("u_Direction")
	texel := mgl32.Vec2{dir.X() / float32(w), dir.Y() / float32(h)}
	res := f.Sample2D(unit).Mul(blurWeights[0])
	for i := 1; i < len(blurWeights); i++ {
		off := texel.Mul(float32(i))
		res = res.Add(f.Sample2DAt(unit, f.UV.Add(off)).Mul(blurWeights[i]))
		res = res.Add(f.Sample2DAt(unit, f.UV.Sub(off)).Mul(blurWeights[i]))
	}
	return res
}

// InstallKernels registers the kernels of the built-in post-processing
// fragment shaders.
func InstallKernels(d *Device) {
	d.RegisterKernel(shader.Source(shader.PassthroughFrag), Passthrough)
	d.RegisterKernel(shader.Source(shader.ColorCorrectionFrag), ColorCorrection)
	d.RegisterKernel(shader.Source(shader.GreyscaleFrag), Greyscale)
	d.RegisterKernel(shader.Source(shader.BlurFrag), Blur)
}

// SolidSource is a fragment shader filling its destination with u_Color.
const SolidSource = `#version 300 es
precision mediump float;
out vec4 fragColor;
uniform vec4 u_Color;
void main() { fragColor = u_Color; }
`

// Solid fills the destination with u_Color.
func Solid(f *Fragment) mgl32.Vec4 {
	return f.Vec4("u_Color")
}

// NewWithKernels returns a device with the built-in kernels and Solid
// registered.
func NewWithKernels(width, height int) *Device {
	d := New(width, height)
	InstallKernels(d)
	d.RegisterKernel(SolidSource, Solid)
	return d
}
