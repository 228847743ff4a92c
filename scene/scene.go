// Package scene is the demo scene drawn into the pipeline's accumulation
// target: a lit floor, two walls, a spinning cube and a sky box.
package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/drawlist"
	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/postfx"
	"github.com/richinsley/gopostfx/shader"
	"go.uber.org/zap"
)

// SkyLayer is the render layer of the sky box, drawn after everything else.
const SkyLayer = 100

// Object is a mesh placed in the scene.
type Object struct {
	Name     string
	Mesh     *gpu.Mesh
	Material *drawlist.Material
	Position mgl32.Vec3
	// Rotation is in degrees about X, Y and Z, applied in that order.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
	// Spin is the rotation about Z in degrees per second.
	Spin float32
}

func (o *Object) Transform() mgl32.Mat4 {
	r := o.Rotation
	return mgl32.Translate3D(o.Position[0], o.Position[1], o.Position[2]).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(r[2]))).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(r[1]))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(r[0]))).
		Mul4(mgl32.Scale3D(o.Scale[0], o.Scale[1], o.Scale[2]))
}

type Scene struct {
	Camera Camera
	Light  drawlist.Light

	ctx       *gpu.Context
	meshes    []*gpu.Mesh
	materials map[string]*drawlist.Material
	objects   []*Object
	sky       *Object
	list      drawlist.List
	elapsed   float32
}

// Build uploads the scene's meshes and creates its materials from programs
// shared through lib. On failure everything Build uploaded is released.
func Build(lib *postfx.Library) (_ *Scene, err error) {
	s := &Scene{
		Camera:    NewCamera(),
		Light:     drawlist.DefaultLight(),
		ctx:       lib.Context(),
		materials: make(map[string]*drawlist.Material),
	}
	defer func() {
		if err != nil {
			s.Release()
		}
	}()

	lit, err := lib.Program(shader.SceneVert, shader.BlinnPhongFrag)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	skyProg, err := lib.Program(shader.SceneVert, shader.SkyFrag)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	matte := s.material("matte", lit, 0)
	matte.Set("u_Color", mgl32.Vec4{0.8, 0.8, 0.8, 1})
	matte.Set("u_Shininess", float32(4))
	matte.Set("u_HasDiffuse", int32(0))
	glossy := s.material("glossy", lit, 0)
	glossy.Set("u_Color", mgl32.Vec4{0.75, 0.2, 0.2, 1})
	glossy.Set("u_Shininess", float32(64))
	glossy.Set("u_HasDiffuse", int32(0))
	sky := s.material("sky", skyProg, SkyLayer)
	sky.Set("u_HorizonCol", mgl32.Vec3{0.75, 0.85, 0.95})
	sky.Set("u_ZenithCol", mgl32.Vec3{0.1, 0.25, 0.6})

	plane, err := s.mesh("plane", planeMesh)
	if err != nil {
		return nil, err
	}
	cube, err := s.mesh("cube", func() ([]float32, []uint32) { return cubeMesh(false) })
	if err != nil {
		return nil, err
	}
	box, err := s.mesh("sky", func() ([]float32, []uint32) { return cubeMesh(true) })
	if err != nil {
		return nil, err
	}

	five := mgl32.Vec3{5, 5, 5}
	s.objects = []*Object{
		{Name: "floor", Mesh: plane, Material: matte, Scale: five},
		{Name: "wall1", Mesh: plane, Material: matte, Position: mgl32.Vec3{-5, 0, 2}, Rotation: mgl32.Vec3{0, 90, 0}, Scale: five},
		{Name: "wall2", Mesh: plane, Material: matte, Position: mgl32.Vec3{0, -5, 2}, Rotation: mgl32.Vec3{90, 0, 0}, Scale: five},
		{Name: "cube", Mesh: cube, Material: glossy, Position: mgl32.Vec3{0, 0, 0.5}, Scale: mgl32.Vec3{1, 1, 1}, Spin: 45},
		{Name: "plinth", Mesh: cube, Material: matte, Position: mgl32.Vec3{2, 0, 0.25}, Scale: mgl32.Vec3{1, 1, 0.5}},
	}
	s.sky = &Object{Name: "sky", Mesh: box, Material: sky, Scale: mgl32.Vec3{500, 500, 500}}
	s.objects = append(s.objects, s.sky)
	s.Update(0)

	logger.Log.Info("scene built",
		zap.Int("objects", len(s.objects)),
		zap.Int("meshes", len(s.meshes)),
		zap.Int("materials", len(s.materials)))
	return s, nil
}

func (s *Scene) material(name string, prog *gpu.Program, layer int) *drawlist.Material {
	m := drawlist.NewMaterial(name, prog, layer)
	s.materials[name] = m
	return m
}

func (s *Scene) mesh(name string, build func() ([]float32, []uint32)) (*gpu.Mesh, error) {
	vertices, indices := build()
	m, err := gpu.NewMesh(s.ctx, name, vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	s.meshes = append(s.meshes, m)
	return m, nil
}

func (s *Scene) Objects() []*Object { return s.objects }

// Object returns the named object, or nil.
func (s *Scene) Object(name string) *Object {
	for _, o := range s.objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func (s *Scene) Material(name string) *drawlist.Material { return s.materials[name] }

// Update advances spinning objects by dt seconds and keeps the sky box
// centred on the camera.
func (s *Scene) Update(dt float32) {
	s.elapsed += dt
	for _, o := range s.objects {
		if o.Spin != 0 {
			o.Rotation[2] = math32.Mod(o.Rotation[2]+o.Spin*dt, 360)
		}
	}
	s.sky.Position = s.Camera.Position
}

// Elapsed is the total time passed to Update.
func (s *Scene) Elapsed() float32 { return s.elapsed }

// Commands collects the frame's draw commands in issue order.
func (s *Scene) Commands() []drawlist.Command {
	s.list.Reset()
	for _, o := range s.objects {
		s.list.Add(o.Mesh, o.Material, o.Transform())
	}
	s.list.Sort()
	return s.list.Commands()
}

func (s *Scene) Frame() *drawlist.Frame {
	return &drawlist.Frame{
		View:       s.Camera.View(),
		Projection: s.Camera.Projection(),
		CameraPos:  s.Camera.Position,
		Light:      s.Light,
	}
}

// Draw issues the scene into the bound target.
func (s *Scene) Draw() drawlist.Stats {
	return drawlist.Issue(s.ctx, s.Commands(), s.Frame())
}

// Release frees the meshes. Programs belong to the library the scene was
// built from. It is safe to call more than once.
func (s *Scene) Release() {
	for _, m := range s.meshes {
		m.Release()
	}
	s.meshes = nil
}
