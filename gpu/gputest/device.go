// Package gputest provides a software gpu.Device for tests.
//
// The device really stores pixels: attachments are quantized to 8 bits per
// channel like an RGBA8 framebuffer, 2D textures are sampled nearest and 3D
// textures trilinearly with the texel-center convention of OpenGL. Fragment
// programs are Go kernels registered against the exact fragment shader
// source. Meshes are recorded and counted but not rasterized.
package gputest

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
)

// Kernel computes the color of one fragment of a fullscreen quad.
type Kernel func(f *Fragment) mgl32.Vec4

// Calls counts every call made to a Device.
type Calls struct {
	CreateTarget  int
	ResizeTarget  int
	DeleteTarget  int
	BindTarget    int
	Clear         int
	CompileStage  int
	DeleteStage   int
	LinkProgram   int
	DeleteProgram int
	UseProgram    int
	SetUniform    int
	CreateTexture int
	DeleteTexture int
	BindTexture   int
	CreateMesh    int
	DeleteMesh    int
	DrawMesh      int
	DrawQuad      int
	ReadPixels    int
}

// Resources counts live device objects.
type Resources struct {
	Targets  int
	Textures int
	Stages   int
	Programs int
	Meshes   int
}

type texture struct {
	kind   gpu.TextureKind
	width  int
	height int
	depth  int
	pix    []mgl32.Vec4
	// attachment textures are owned by their target
	owned bool
}

type target struct {
	attachments []gpu.Format
	textures    []gpu.TextureID
	width       int
	height      int
}

type stage struct {
	kind   gpu.StageKind
	source string
}

type program struct {
	kernel   Kernel
	uniforms map[string]any
}

type mesh struct {
	vertices int
	indices  int
}

// Device is a software gpu.Device. The zero value is not usable; call New.
type Device struct {
	// MaxSize is the largest width or height CreateTarget and ResizeTarget
	// accept.
	MaxSize int
	// FailTargetAt makes the n-th CreateTarget call (1-based) fail. Zero
	// disables it.
	FailTargetAt int

	Calls Calls

	kernels  map[string]Kernel
	targets  map[gpu.TargetID]*target
	textures map[gpu.TextureID]*texture
	stages   map[gpu.StageID]*stage
	programs map[gpu.ProgramID]*program
	meshes   map[gpu.MeshID]*mesh
	nextID   uint32

	screen    *target
	bound     gpu.TargetID
	viewportW int
	viewportH int
	current   gpu.ProgramID
	units     map[int]gpu.TextureID
	depthTest bool

	drawn []gpu.MeshID
}

var _ gpu.Device = (*Device)(nil)

// New returns a device whose default framebuffer is width x height.
func New(width, height int) *Device {
	d := &Device{
		MaxSize:  8192,
		kernels:  make(map[string]Kernel),
		targets:  make(map[gpu.TargetID]*target),
		textures: make(map[gpu.TextureID]*texture),
		stages:   make(map[gpu.StageID]*stage),
		programs: make(map[gpu.ProgramID]*program),
		meshes:   make(map[gpu.MeshID]*mesh),
		units:    make(map[int]gpu.TextureID),
	}
	d.screen = &target{attachments: []gpu.Format{gpu.FormatRGBA8, gpu.FormatDepth24}}
	d.resizeScreen(width, height)
	d.viewportW, d.viewportH = width, height
	return d
}

// RegisterKernel sets the kernel run by programs linked with the given
// fragment source.
func (d *Device) RegisterKernel(fragmentSource string, k Kernel) {
	d.kernels[fragmentSource] = k
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) resizeScreen(width, height int) {
	for _, tex := range d.screen.textures {
		delete(d.textures, tex)
	}
	d.screen.textures = d.screen.textures[:0]
	d.screen.width, d.screen.height = width, height
	for range d.screen.attachments {
		d.screen.textures = append(d.screen.textures, d.newTexture2D(width, height))
	}
}

func (d *Device) newTexture2D(width, height int) gpu.TextureID {
	id := gpu.TextureID(d.id())
	d.textures[id] = &texture{
		kind:   gpu.Texture2D,
		width:  width,
		height: height,
		depth:  1,
		pix:    make([]mgl32.Vec4, width*height),
		owned:  true,
	}
	return id
}

func (d *Device) CreateTarget(attachments []gpu.Format, width, height int) (gpu.TargetID, error) {
	d.Calls.CreateTarget++
	fail := func(reason string) (gpu.TargetID, error) {
		return 0, &gpu.ResourceError{Op: "allocate", Width: width, Height: height, Attachments: attachments, Reason: reason}
	}
	if d.FailTargetAt > 0 && d.Calls.CreateTarget == d.FailTargetAt {
		return fail("injected failure")
	}
	if err := d.checkTarget(attachments, width, height); err != "" {
		return fail(err)
	}
	t := &target{attachments: append([]gpu.Format(nil), attachments...), width: width, height: height}
	for range attachments {
		t.textures = append(t.textures, d.newTexture2D(width, height))
	}
	id := gpu.TargetID(d.id())
	d.targets[id] = t
	return id, nil
}

func (d *Device) checkTarget(attachments []gpu.Format, width, height int) string {
	if width <= 0 || height <= 0 || width > d.MaxSize || height > d.MaxSize {
		return fmt.Sprintf("size outside 1..%d", d.MaxSize)
	}
	colors, depths := 0, 0
	for _, f := range attachments {
		switch {
		case f.IsColor():
			colors++
		case f.IsDepth():
			depths++
		default:
			return fmt.Sprintf("unsupported attachment format %s", f)
		}
	}
	if colors+depths == 0 {
		return "incomplete: no attachments"
	}
	if colors > 8 {
		return "too many color attachments"
	}
	if depths > 1 {
		return "more than one depth attachment"
	}
	return ""
}

func (d *Device) ResizeTarget(id gpu.TargetID, width, height int) error {
	d.Calls.ResizeTarget++
	t := d.mustTarget(id)
	if err := d.checkTarget(t.attachments, width, height); err != "" {
		d.deleteTarget(id)
		return &gpu.ResourceError{Op: "reshape", Width: width, Height: height, Attachments: t.attachments, Reason: err}
	}
	for i, tex := range t.textures {
		delete(d.textures, tex)
		t.textures[i] = d.newTexture2D(width, height)
	}
	t.width, t.height = width, height
	return nil
}

func (d *Device) DeleteTarget(id gpu.TargetID) {
	d.Calls.DeleteTarget++
	d.mustTarget(id)
	d.deleteTarget(id)
}

func (d *Device) deleteTarget(id gpu.TargetID) {
	t := d.targets[id]
	for _, tex := range t.textures {
		delete(d.textures, tex)
	}
	delete(d.targets, id)
	if d.bound == id {
		d.bound = gpu.Screen
	}
}

func (d *Device) mustTarget(id gpu.TargetID) *target {
	if id == gpu.Screen {
		return d.screen
	}
	t, ok := d.targets[id]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown target %d", id))
	}
	return t
}

func (d *Device) AttachmentTexture(id gpu.TargetID, index int) gpu.TextureID {
	t := d.mustTarget(id)
	if index < 0 || index >= len(t.textures) {
		panic(fmt.Sprintf("gputest: target %d has no attachment %d", id, index))
	}
	return t.textures[index]
}

func (d *Device) BindTarget(id gpu.TargetID) {
	d.Calls.BindTarget++
	d.mustTarget(id)
	d.bound = id
}

// Viewport sets the draw area. While the default framebuffer is bound it
// also resizes it, the way a window surface follows its drawable size.
func (d *Device) Viewport(width, height int) {
	d.viewportW, d.viewportH = width, height
	if d.bound == gpu.Screen && (width != d.screen.width || height != d.screen.height) {
		d.resizeScreen(width, height)
	}
}

func (d *Device) Clear(color mgl32.Vec4, depth float32) {
	d.Calls.Clear++
	t := d.mustTarget(d.bound)
	for i, f := range t.attachments {
		v := Quantize(color)
		if f.IsDepth() {
			v = mgl32.Vec4{depth, depth, depth, 1}
		}
		pix := d.textures[t.textures[i]].pix
		for p := range pix {
			pix[p] = v
		}
	}
}

func (d *Device) SetDepthTest(enabled bool) { d.depthTest = enabled }

// DepthTest reports whether depth testing is enabled.
func (d *Device) DepthTest() bool { return d.depthTest }

func (d *Device) CompileStage(source string, kind gpu.StageKind) (gpu.StageID, error) {
	d.Calls.CompileStage++
	if strings.TrimSpace(source) == "" {
		return 0, &gpu.CompileError{Stage: kind, Diagnostic: "ERROR: 0:1: empty shader source"}
	}
	if i := strings.Index(source, "#error"); i >= 0 {
		line := 1 + strings.Count(source[:i], "\n")
		return 0, &gpu.CompileError{Stage: kind, Diagnostic: fmt.Sprintf("ERROR: 0:%d: '#error' : %s", line, firstLine(source[i+len("#error"):]))}
	}
	id := gpu.StageID(d.id())
	d.stages[id] = &stage{kind: kind, source: source}
	return id, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (d *Device) DeleteStage(id gpu.StageID) {
	d.Calls.DeleteStage++
	if _, ok := d.stages[id]; !ok {
		panic(fmt.Sprintf("gputest: unknown stage %d", id))
	}
	delete(d.stages, id)
}

func (d *Device) LinkProgram(stages []gpu.StageID) (gpu.ProgramID, error) {
	d.Calls.LinkProgram++
	var vert, frag *stage
	for _, id := range stages {
		s, ok := d.stages[id]
		if !ok {
			panic(fmt.Sprintf("gputest: unknown stage %d", id))
		}
		switch s.kind {
		case gpu.VertexStage:
			vert = s
		case gpu.FragmentStage:
			frag = s
		}
	}
	if vert == nil {
		return 0, &gpu.LinkError{Diagnostic: "ERROR: Linking with no vertex shader"}
	}
	if frag == nil {
		return 0, &gpu.LinkError{Diagnostic: "ERROR: Linking with no fragment shader"}
	}
	id := gpu.ProgramID(d.id())
	d.programs[id] = &program{kernel: d.kernels[frag.source], uniforms: make(map[string]any)}
	return id, nil
}

func (d *Device) DeleteProgram(id gpu.ProgramID) {
	d.Calls.DeleteProgram++
	if _, ok := d.programs[id]; !ok {
		panic(fmt.Sprintf("gputest: unknown program %d", id))
	}
	delete(d.programs, id)
	if d.current == id {
		d.current = 0
	}
}

func (d *Device) UseProgram(id gpu.ProgramID) {
	d.Calls.UseProgram++
	if id != 0 {
		d.mustProgram(id)
	}
	d.current = id
}

func (d *Device) mustProgram(id gpu.ProgramID) *program {
	p, ok := d.programs[id]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown program %d", id))
	}
	return p
}

func (d *Device) SetUniform(id gpu.ProgramID, name string, value any) {
	d.Calls.SetUniform++
	if err := gpu.CheckUniform(value); err != nil {
		panic(err)
	}
	d.mustProgram(id).uniforms[name] = value
}

// Uniform returns the value last uploaded for a program uniform.
func (d *Device) Uniform(id gpu.ProgramID, name string) (any, bool) {
	v, ok := d.mustProgram(id).uniforms[name]
	return v, ok
}

func (d *Device) CreateTexture3D(size int, rgb []float32) (gpu.TextureID, error) {
	d.Calls.CreateTexture++
	if size < 2 || size > 256 {
		return 0, fmt.Errorf("gputest: unsupported 3D texture size %d", size)
	}
	if len(rgb) != size*size*size*3 {
		return 0, fmt.Errorf("gputest: 3D texture of size %d needs %d floats, got %d", size, size*size*size*3, len(rgb))
	}
	pix := make([]mgl32.Vec4, size*size*size)
	for i := range pix {
		pix[i] = mgl32.Vec4{rgb[3*i], rgb[3*i+1], rgb[3*i+2], 1}
	}
	id := gpu.TextureID(d.id())
	d.textures[id] = &texture{kind: gpu.Texture3D, width: size, height: size, depth: size, pix: pix}
	return id, nil
}

func (d *Device) DeleteTexture(id gpu.TextureID) {
	d.Calls.DeleteTexture++
	t, ok := d.textures[id]
	if !ok || t.owned {
		panic(fmt.Sprintf("gputest: cannot delete texture %d", id))
	}
	delete(d.textures, id)
}

func (d *Device) BindTexture(unit int, kind gpu.TextureKind, id gpu.TextureID) {
	d.Calls.BindTexture++
	if id == 0 {
		delete(d.units, unit)
		return
	}
	t, ok := d.textures[id]
	if !ok {
		panic(fmt.Sprintf("gputest: unknown texture %d", id))
	}
	if t.kind != kind {
		panic(fmt.Sprintf("gputest: texture %d bound with the wrong kind", id))
	}
	d.units[unit] = id
}

func (d *Device) CreateMesh(vertices []float32, indices []uint32) (gpu.MeshID, error) {
	d.Calls.CreateMesh++
	if len(vertices) == 0 || len(vertices)%gpu.MeshStride != 0 {
		return 0, fmt.Errorf("gputest: vertex data length %d is not a multiple of %d", len(vertices), gpu.MeshStride)
	}
	n := uint32(len(vertices) / gpu.MeshStride)
	for _, i := range indices {
		if i >= n {
			return 0, fmt.Errorf("gputest: index %d out of range for %d vertices", i, n)
		}
	}
	id := gpu.MeshID(d.id())
	d.meshes[id] = &mesh{vertices: int(n), indices: len(indices)}
	return id, nil
}

func (d *Device) DeleteMesh(id gpu.MeshID) {
	d.Calls.DeleteMesh++
	if _, ok := d.meshes[id]; !ok {
		panic(fmt.Sprintf("gputest: unknown mesh %d", id))
	}
	delete(d.meshes, id)
}

func (d *Device) DrawMesh(id gpu.MeshID) {
	d.Calls.DrawMesh++
	if _, ok := d.meshes[id]; !ok {
		panic(fmt.Sprintf("gputest: unknown mesh %d", id))
	}
	d.drawn = append(d.drawn, id)
}

// DrawnMeshes returns the meshes drawn so far, in draw order.
func (d *Device) DrawnMeshes() []gpu.MeshID { return append([]gpu.MeshID(nil), d.drawn...) }

// DrawFullscreenQuad runs the current program's kernel for every pixel of the
// viewport and writes the result to every color attachment of the bound
// target. Programs without a kernel leave the target untouched.
func (d *Device) DrawFullscreenQuad() {
	d.Calls.DrawQuad++
	p := d.mustProgram(d.current)
	if p.kernel == nil {
		return
	}
	t := d.mustTarget(d.bound)
	w, h := min(d.viewportW, t.width), min(d.viewportH, t.height)
	out := make([]mgl32.Vec4, w*h)
	f := &Fragment{dev: d, prog: p}
	// sources are sampled before anything is written back
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.UV = mgl32.Vec2{(float32(x) + 0.5) / float32(d.viewportW), (float32(y) + 0.5) / float32(d.viewportH)}
			out[y*w+x] = Quantize(p.kernel(f))
		}
	}
	for i, fmtTag := range t.attachments {
		if !fmtTag.IsColor() {
			continue
		}
		tex := d.textures[t.textures[i]]
		for y := 0; y < h; y++ {
			copy(tex.pix[y*tex.width:y*tex.width+w], out[y*w:(y+1)*w])
		}
	}
}

func (d *Device) ReadPixels(x, y, width, height int) ([]byte, error) {
	d.Calls.ReadPixels++
	t := d.mustTarget(d.bound)
	if x < 0 || y < 0 || x+width > t.width || y+height > t.height {
		return nil, fmt.Errorf("gputest: read %dx%d at (%d,%d) outside %dx%d target", width, height, x, y, t.width, t.height)
	}
	tex := d.colorTexture(t)
	buf := make([]byte, 0, width*height*4)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			c := tex.pix[row*tex.width+col]
			for _, ch := range c {
				buf = append(buf, byte(math32.Round(clamp01(ch)*255)))
			}
		}
	}
	return buf, nil
}

func (d *Device) colorTexture(t *target) *texture {
	for i, f := range t.attachments {
		if f.IsColor() {
			return d.textures[t.textures[i]]
		}
	}
	panic("gputest: target has no color attachment")
}

// ScreenPixel returns a pixel of the default framebuffer, origin bottom-left.
func (d *Device) ScreenPixel(x, y int) mgl32.Vec4 {
	tex := d.colorTexture(d.screen)
	return tex.pix[y*tex.width+x]
}

// ScreenSize returns the size of the default framebuffer.
func (d *Device) ScreenSize() (int, int) { return d.screen.width, d.screen.height }

// TargetPixel returns a pixel of attachment index of a target.
func (d *Device) TargetPixel(id gpu.TargetID, index, x, y int) mgl32.Vec4 {
	t := d.mustTarget(id)
	tex := d.textures[t.textures[index]]
	return tex.pix[y*tex.width+x]
}

// TargetSize returns the storage size of a target.
func (d *Device) TargetSize(id gpu.TargetID) (int, int) {
	t := d.mustTarget(id)
	return t.width, t.height
}

// BoundTarget returns the target the device draws into.
func (d *Device) BoundTarget() gpu.TargetID { return d.bound }

// CurrentProgram returns the program in use, zero if none.
func (d *Device) CurrentProgram() gpu.ProgramID { return d.current }

// BoundUnits returns the number of sampler units holding a texture.
func (d *Device) BoundUnits() int { return len(d.units) }

// Live counts the objects created and not yet deleted. Attachment textures
// are counted with their target.
func (d *Device) Live() Resources {
	r := Resources{
		Targets:  len(d.targets),
		Stages:   len(d.stages),
		Programs: len(d.programs),
		Meshes:   len(d.meshes),
	}
	for _, t := range d.textures {
		if !t.owned {
			r.Textures++
		}
	}
	return r
}

// HasTarget reports whether id names a live target.
func (d *Device) HasTarget(id gpu.TargetID) bool {
	_, ok := d.targets[id]
	return ok
}

// Quantize rounds every channel to the nearest 8-bit value, as an RGBA8
// attachment stores it.
func Quantize(c mgl32.Vec4) mgl32.Vec4 {
	for i := range c {
		c[i] = math32.Round(clamp01(c[i])*255) / 255
	}
	return c
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}
