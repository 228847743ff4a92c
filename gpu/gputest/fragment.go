package gputest

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
)

// Fragment is the input of a Kernel: the fragment's texture coordinate and
// access to the program's uniforms and the bound sampler units.
type Fragment struct {
	UV mgl32.Vec2

	dev  *Device
	prog *program
}

// Int returns an integer uniform, zero when unset.
func (f *Fragment) Int(name string) int {
	switch v := f.prog.uniforms[name].(type) {
	case int32:
		return int(v)
	case int:
		return v
	case bool:
		if v {
			return 1
		}
	case float32:
		return int(v)
	}
	return 0
}

// Float returns a float uniform, zero when unset.
func (f *Fragment) Float(name string) float32 {
	switch v := f.prog.uniforms[name].(type) {
	case float32:
		return v
	case int32:
		return float32(v)
	case int:
		return float32(v)
	}
	return 0
}

func (f *Fragment) Vec2(name string) mgl32.Vec2 {
	v, _ := f.prog.uniforms[name].(mgl32.Vec2)
	return v
}

func (f *Fragment) Vec3(name string) mgl32.Vec3 {
	v, _ := f.prog.uniforms[name].(mgl32.Vec3)
	return v
}

func (f *Fragment) Vec4(name string) mgl32.Vec4 {
	v, _ := f.prog.uniforms[name].(mgl32.Vec4)
	return v
}

func (f *Fragment) texture(unit int, kind gpu.TextureKind) *texture {
	id, ok := f.dev.units[unit]
	if !ok {
		return nil
	}
	t := f.dev.textures[id]
	if t == nil || t.kind != kind {
		return nil
	}
	return t
}

// Size returns the dimensions of the texture on a sampler unit, zero if none.
func (f *Fragment) Size(unit int) (int, int) {
	for _, kind := range []gpu.TextureKind{gpu.Texture2D, gpu.Texture3D} {
		if t := f.texture(unit, kind); t != nil {
			return t.width, t.height
		}
	}
	return 0, 0
}

// Sample2D samples the 2D texture on unit at the fragment's coordinate.
func (f *Fragment) Sample2D(unit int) mgl32.Vec4 {
	return f.Sample2DAt(unit, f.UV)
}

// Sample2DAt samples the 2D texture on unit with nearest filtering and edge
// clamping. An empty unit samples as opaque black.
func (f *Fragment) Sample2DAt(unit int, uv mgl32.Vec2) mgl32.Vec4 {
	t := f.texture(unit, gpu.Texture2D)
	if t == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	x := clampIndex(int(math32.Floor(uv.X()*float32(t.width))), t.width)
	y := clampIndex(int(math32.Floor(uv.Y()*float32(t.height))), t.height)
	return t.pix[y*t.width+x]
}

// Sample3D samples the 3D texture on unit with trilinear filtering and edge
// clamping. Coordinate 0 and 1 address the outer edges of the outer texels,
// so the first texel center lies at 1/(2n).
func (f *Fragment) Sample3D(unit int, p mgl32.Vec3) mgl32.Vec4 {
	t := f.texture(unit, gpu.Texture3D)
	if t == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	n := t.width
	var i0, i1 [3]int
	var fr [3]float32
	for a := 0; a < 3; a++ {
		c := p[a]*float32(n) - 0.5
		c = math32.Max(0, math32.Min(float32(n-1), c))
		fl := math32.Floor(c)
		i0[a] = int(fl)
		i1[a] = min(i0[a]+1, n-1)
		fr[a] = c - fl
	}
	at := func(x, y, z int) mgl32.Vec4 { return t.pix[x+y*n+z*n*n] }
	lerp := func(a, b mgl32.Vec4, w float32) mgl32.Vec4 { return a.Mul(1 - w).Add(b.Mul(w)) }

	c00 := lerp(at(i0[0], i0[1], i0[2]), at(i1[0], i0[1], i0[2]), fr[0])
	c10 := lerp(at(i0[0], i1[1], i0[2]), at(i1[0], i1[1], i0[2]), fr[0])
	c01 := lerp(at(i0[0], i0[1], i1[2]), at(i1[0], i0[1], i1[2]), fr[0])
	c11 := lerp(at(i0[0], i1[1], i1[2]), at(i1[0], i1[1], i1[2]), fr[0])
	c0 := lerp(c00, c10, fr[1])
	c1 := lerp(c01, c11, fr[1])
	return lerp(c0, c1, fr[2])
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
