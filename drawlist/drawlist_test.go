package drawlist

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/gpu/gputest"
	"github.com/richinsley/gopostfx/shader"
)

type fixture struct {
	dev    *gputest.Device
	ctx    *gpu.Context
	target *gpu.RenderTarget
	mesh   *gpu.Mesh
	frame  *Frame
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := gputest.New(4, 4)
	ctx := gpu.NewContext(dev)
	rt := gpu.NewRenderTarget(ctx)
	rt.AddColorAttachment(gpu.FormatRGBA8)
	rt.AddDepthAttachment()
	require.NoError(t, rt.Allocate(4, 4))
	mesh, err := gpu.NewMesh(ctx, "quad", []float32{
		0, 0, 0, 0, 0, 1, 0, 0,
		1, 0, 0, 0, 0, 1, 1, 0,
		1, 1, 0, 0, 0, 1, 1, 1,
		0, 1, 0, 0, 0, 1, 0, 1,
	}, []uint32{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	t.Cleanup(func() {
		mesh.Release()
		rt.Release()
	})
	return &fixture{
		dev:    dev,
		ctx:    ctx,
		target: rt,
		mesh:   mesh,
		frame: &Frame{
			View:       mgl32.LookAtV(mgl32.Vec3{0, 3, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}),
			Projection: mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100),
			CameraPos:  mgl32.Vec3{0, 3, 3},
			Light:      DefaultLight(),
		},
	}
}

func (f *fixture) program(t *testing.T, frag string) *gpu.Program {
	t.Helper()
	p := gpu.NewProgram(f.ctx, frag)
	require.NoError(t, p.AddStage(shader.Source(shader.SceneVert), gpu.VertexStage))
	require.NoError(t, p.AddStage(shader.Source(frag), gpu.FragmentStage))
	require.NoError(t, p.Link())
	t.Cleanup(p.Release)
	return p
}

func (f *fixture) issue(cmds []Command) Stats {
	f.target.Bind()
	defer f.target.Unbind()
	return Issue(f.ctx, cmds, f.frame)
}

// commands returns n commands spread round-robin over materials, shuffled.
func commands(f *fixture, n int, materials []*Material, seed uint64) []Command {
	cmds := make([]Command, n)
	for i := range cmds {
		cmds[i] = Command{
			Mesh:      f.mesh,
			Material:  materials[i%len(materials)],
			Transform: mgl32.Translate3D(float32(i), 0, 0),
		}
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(cmds), func(i, j int) { cmds[i], cmds[j] = cmds[j], cmds[i] })
	return cmds
}

func TestSortOrdersByLayerProgramMaterial(t *testing.T) {
	f := newFixture(t)
	lit, sky := f.program(t, shader.BlinnPhongFrag), f.program(t, shader.SkyFrag)
	require.Less(t, lit.ID(), sky.ID())

	skyMat := NewMaterial("sky", lit, 100)
	a := NewMaterial("a", sky, 0)
	b := NewMaterial("b", lit, 0)
	c := NewMaterial("c", lit, 0)

	cmds := []Command{
		{Mesh: f.mesh, Material: skyMat},
		{Mesh: f.mesh, Material: a},
		{Mesh: f.mesh, Material: c},
		{Mesh: f.mesh, Material: b},
	}
	Sort(cmds)

	var names []string
	for _, c := range cmds {
		names = append(names, c.Material.Name())
	}
	assert.Equal(t, []string{"b", "c", "a", "sky"}, names)
}

func TestSortIsIdempotentAndStable(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.program(t, shader.BlinnPhongFrag), f.program(t, shader.SkyFrag)
	mats := []*Material{
		NewMaterial("m0", p1, 0), NewMaterial("m1", p2, 0), NewMaterial("m2", p1, 1),
	}
	cmds := commands(f, 60, mats, 7)
	Sort(cmds)
	once := slices.Clone(cmds)
	Sort(cmds)
	assert.Equal(t, once, cmds)
	assert.True(t, slices.IsSortedFunc(cmds, Compare))

	// equal keys keep their input order
	for i := 1; i < len(cmds); i++ {
		if Compare(cmds[i-1], cmds[i]) == 0 {
			assert.NotEqual(t, cmds[i-1].Transform, cmds[i].Transform)
		}
	}
	input := commands(f, 60, mats, 7)
	var want []mgl32.Mat4
	for _, m := range []*Material{mats[0], mats[1], mats[2]} {
		for _, c := range input {
			if c.Material == m {
				want = append(want, c.Transform)
			}
		}
	}
	Sort(input)
	var got []mgl32.Mat4
	for _, c := range input {
		got = append(got, c.Transform)
	}
	assert.Equal(t, want, got)
}

func TestIssueBindsOncePerRun(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.program(t, shader.BlinnPhongFrag), f.program(t, shader.SkyFrag)
	mats := []*Material{
		NewMaterial("red", p1, 0),
		NewMaterial("green", p1, 0),
		NewMaterial("blue", p1, 0),
		NewMaterial("horizon", p2, 0),
		NewMaterial("zenith", p2, 0),
	}
	for _, m := range mats {
		m.Set("u_Color", mgl32.Vec4{1, 0, 0, 1})
	}
	cmds := commands(f, 100, mats, 42)
	Sort(cmds)

	f.ctx.ResetCounters()
	stats := f.issue(cmds)
	assert.Equal(t, Stats{Draws: 100, ProgramBinds: 2, MaterialApplies: 5}, stats)
	assert.Equal(t, 2, f.ctx.Counters().ProgramBinds)
	assert.Equal(t, 100, f.ctx.Counters().Draws)
	assert.Len(t, f.dev.DrawnMeshes(), 100)

	assert.True(t, f.ctx.Idle())
	for _, m := range mats {
		assert.False(t, m.Applied())
	}
}

func TestIssueCountsRunsOfUnsortedInput(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.program(t, shader.BlinnPhongFrag), f.program(t, shader.SkyFrag)
	mats := []*Material{NewMaterial("a", p1, 0), NewMaterial("b", p2, 0), NewMaterial("c", p1, 0)}

	for seed := uint64(1); seed <= 5; seed++ {
		cmds := commands(f, 30, mats, seed)
		programs, materials := Runs(cmds)
		stats := f.issue(cmds)
		assert.Equal(t, programs, stats.ProgramBinds)
		assert.Equal(t, materials, stats.MaterialApplies)

		Sort(cmds)
		stats = f.issue(cmds)
		assert.Equal(t, Stats{Draws: 30, ProgramBinds: 2, MaterialApplies: 3}, stats)
	}
}

func TestEqualKeysDoNotChangeCounts(t *testing.T) {
	f := newFixture(t)
	p := f.program(t, shader.BlinnPhongFrag)
	m1, m2 := NewMaterial("m1", p, 0), NewMaterial("m2", p, 0)
	cmds := []Command{
		{Mesh: f.mesh, Material: m1, Transform: mgl32.Ident4()},
		{Mesh: f.mesh, Material: m1, Transform: mgl32.Translate3D(1, 0, 0)},
		{Mesh: f.mesh, Material: m2, Transform: mgl32.Ident4()},
	}
	swapped := []Command{cmds[1], cmds[0], cmds[2]}

	assert.Equal(t, f.issue(cmds), f.issue(swapped))
}

func TestIssueUploadsFrameAndDrawUniforms(t *testing.T) {
	f := newFixture(t)
	p := f.program(t, shader.BlinnPhongFrag)
	m := NewMaterial("gold", p, 0)
	m.Set("u_Color", mgl32.Vec4{1, 0.8, 0, 1})
	m.Set("u_Shininess", float32(32))
	m.Set("u_Shininess", float32(64))
	model := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))

	f.issue([]Command{{Mesh: f.mesh, Material: m, Transform: model}})

	uniform := func(name string) any {
		v, ok := f.dev.Uniform(p.ID(), name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, model, uniform("u_Model"))
	assert.Equal(t, f.frame.Projection.Mul4(f.frame.View).Mul4(model), uniform("u_ModelViewProjection"))
	assert.Equal(t, model.Mat3().Inv().Transpose(), uniform("u_NormalMatrix"))
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, uniform("u_LightPos"))
	assert.Equal(t, float32(0.032), uniform("u_LightAttenuationQuadratic"))
	assert.Equal(t, f.frame.CameraPos, uniform("u_CamPos"))
	assert.Equal(t, float32(64), uniform("u_Shininess"))
}

func TestMaterialTextures(t *testing.T) {
	f := newFixture(t)
	p := f.program(t, shader.BlinnPhongFrag)
	data := make([]float32, 2*2*2*3)
	tex, err := f.dev.CreateTexture3D(2, data)
	require.NoError(t, err)

	m := NewMaterial("textured", p, 0)
	m.SetTexture("s_Diffuse", 3, gpu.Texture3D, tex)
	v, ok := m.Get("s_Diffuse")
	require.True(t, ok)
	assert.Equal(t, int32(3), v)

	assert.Panics(t, func() { m.Apply(f.ctx) }, "program not bound")
	assert.Panics(t, func() { m.Set("u_Bad", "string") })
	assert.Panics(t, func() { m.SetTexture("s_Bad", 1, gpu.Texture2D, 0) })

	f.ctx.ResetCounters()
	f.issue([]Command{
		{Mesh: f.mesh, Material: m, Transform: mgl32.Ident4()},
		{Mesh: f.mesh, Material: m, Transform: mgl32.Ident4()},
	})
	assert.Equal(t, 1, f.ctx.Counters().TextureBinds)
	assert.Empty(t, f.ctx.BoundUnits())
	assert.Zero(t, f.dev.BoundUnits())
	f.dev.DeleteTexture(tex)
}

func TestIssueRejectsIncompleteCommands(t *testing.T) {
	f := newFixture(t)
	assert.Panics(t, func() { f.issue([]Command{{Mesh: f.mesh}}) })
	assert.Panics(t, func() { NewMaterial("none", nil, 0) })
	assert.Equal(t, Stats{}, f.issue(nil))
}
