package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
)

type face struct {
	n, u, v mgl32.Vec3
}

// u x v == n, so corners walk counter-clockwise seen from outside.
var cubeFaces = [6]face{
	{n: mgl32.Vec3{1, 0, 0}, u: mgl32.Vec3{0, 1, 0}, v: mgl32.Vec3{0, 0, 1}},
	{n: mgl32.Vec3{-1, 0, 0}, u: mgl32.Vec3{0, 0, 1}, v: mgl32.Vec3{0, 1, 0}},
	{n: mgl32.Vec3{0, 1, 0}, u: mgl32.Vec3{0, 0, 1}, v: mgl32.Vec3{1, 0, 0}},
	{n: mgl32.Vec3{0, -1, 0}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 0, 1}},
	{n: mgl32.Vec3{0, 0, 1}, u: mgl32.Vec3{1, 0, 0}, v: mgl32.Vec3{0, 1, 0}},
	{n: mgl32.Vec3{0, 0, -1}, u: mgl32.Vec3{0, 1, 0}, v: mgl32.Vec3{1, 0, 0}},
}

var corners = [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

// builder accumulates interleaved position, normal, uv vertices.
type builder struct {
	vertices []float32
	indices  []uint32
}

func (b *builder) quad(center, n, u, v mgl32.Vec3, half float32, inward bool) {
	base := uint32(len(b.vertices) / gpu.MeshStride)
	normal := n
	if inward {
		normal = n.Mul(-1)
	}
	for _, c := range corners {
		p := center.Add(n.Add(u.Mul(c[0])).Add(v.Mul(c[1])).Mul(half))
		b.vertices = append(b.vertices,
			p[0], p[1], p[2],
			normal[0], normal[1], normal[2],
			(c[0]+1)/2, (c[1]+1)/2)
	}
	if inward {
		b.indices = append(b.indices, base, base+2, base+1, base, base+3, base+2)
	} else {
		b.indices = append(b.indices, base, base+1, base+2, base, base+2, base+3)
	}
}

// cubeMesh returns a unit cube centred on the origin. An inward cube faces
// its interior, for drawing a sky box around the camera.
func cubeMesh(inward bool) ([]float32, []uint32) {
	var b builder
	for _, f := range cubeFaces {
		b.quad(mgl32.Vec3{}, f.n, f.u, f.v, 0.5, inward)
	}
	return b.vertices, b.indices
}

// planeMesh returns a 2x2 plane in XY facing +Z.
func planeMesh() ([]float32, []uint32) {
	var b builder
	f := cubeFaces[4]
	b.quad(f.n.Mul(-1), f.n, f.u, f.v, 1, false)
	return b.vertices, b.indices
}
