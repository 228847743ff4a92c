package gpu

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Counters tallies the submissions made through a Context.
type Counters struct {
	TargetBinds  int
	ProgramBinds int
	TextureBinds int
	Clears       int
	Draws        int
}

type unitBinding struct {
	kind TextureKind
	tex  TextureID
}

// Context is the binding state of a Device: the current draw destination, the
// current program and the texture bound to each sampler unit. It is threaded
// through the render loop instead of living as ambient driver state, so every
// bind is checked against the previous one.
//
// Binding is not reentrant. Binding a target, program or sampler unit while
// another resource of the same kind is bound is a programming error and
// panics; the previous resource must be unbound first.
type Context struct {
	dev Device

	target      TargetID
	targetBound bool
	program     ProgramID
	units       map[int]unitBinding

	screenWidth  int
	screenHeight int
	depthTest    bool

	counters Counters
}

func NewContext(dev Device) *Context {
	return &Context{
		dev:   dev,
		units: make(map[int]unitBinding),
	}
}

func (c *Context) Device() Device { return c.dev }

// SetScreenSize records the size of the default framebuffer.
func (c *Context) SetScreenSize(width, height int) {
	c.screenWidth, c.screenHeight = width, height
}

func (c *Context) ScreenSize() (int, int) { return c.screenWidth, c.screenHeight }

// BindTarget makes id the draw destination and sets the viewport to cover it.
func (c *Context) BindTarget(id TargetID, width, height int) {
	if c.targetBound {
		panic(fmt.Sprintf("gpu: binding target %d while target %d is still bound", id, c.target))
	}
	c.dev.BindTarget(id)
	c.dev.Viewport(width, height)
	c.target = id
	c.targetBound = true
	c.counters.TargetBinds++
}

// BindScreen makes the default framebuffer the draw destination.
func (c *Context) BindScreen() {
	c.BindTarget(Screen, c.screenWidth, c.screenHeight)
}

// UnbindTarget clears the draw destination. It is a no-op when nothing is bound.
func (c *Context) UnbindTarget() {
	if !c.targetBound {
		return
	}
	if c.target != Screen {
		c.dev.BindTarget(Screen)
	}
	c.target = Screen
	c.targetBound = false
}

// BoundTarget returns the current draw destination, if any.
func (c *Context) BoundTarget() (TargetID, bool) { return c.target, c.targetBound }

func (c *Context) UseProgram(id ProgramID) {
	if id == 0 {
		panic("gpu: UseProgram with a zero program")
	}
	if c.program != 0 {
		panic(fmt.Sprintf("gpu: binding program %d while program %d is still bound", id, c.program))
	}
	c.dev.UseProgram(id)
	c.program = id
	c.counters.ProgramBinds++
}

// UnuseProgram clears the current program. It is a no-op when none is bound.
func (c *Context) UnuseProgram() {
	if c.program == 0 {
		return
	}
	c.dev.UseProgram(0)
	c.program = 0
}

func (c *Context) BoundProgram() ProgramID { return c.program }

func (c *Context) BindTexture(unit int, kind TextureKind, tex TextureID) {
	if unit < 0 {
		panic(fmt.Sprintf("gpu: invalid sampler unit %d", unit))
	}
	if tex == 0 {
		panic(fmt.Sprintf("gpu: binding a zero texture to unit %d", unit))
	}
	if b, ok := c.units[unit]; ok {
		panic(fmt.Sprintf("gpu: binding texture %d to unit %d while texture %d is still bound", tex, unit, b.tex))
	}
	c.dev.BindTexture(unit, kind, tex)
	c.units[unit] = unitBinding{kind: kind, tex: tex}
	c.counters.TextureBinds++
}

// UnbindTexture clears a sampler unit. It is a no-op for an unbound unit.
func (c *Context) UnbindTexture(unit int) {
	b, ok := c.units[unit]
	if !ok {
		return
	}
	c.dev.BindTexture(unit, b.kind, 0)
	delete(c.units, unit)
}

// BoundTexture returns the texture bound to unit, if any.
func (c *Context) BoundTexture(unit int) (TextureID, bool) {
	b, ok := c.units[unit]
	return b.tex, ok
}

// BoundUnits returns the sampler units that currently hold a texture, ascending.
func (c *Context) BoundUnits() []int {
	units := make([]int, 0, len(c.units))
	for u := range c.units {
		units = append(units, u)
	}
	sort.Ints(units)
	return units
}

// Idle reports whether no target, program or texture is bound.
func (c *Context) Idle() bool {
	return !c.targetBound && c.program == 0 && len(c.units) == 0
}

// Clear clears every attachment of the bound destination.
func (c *Context) Clear(color mgl32.Vec4, depth float32) {
	if !c.targetBound {
		panic("gpu: Clear with no target bound")
	}
	c.dev.Clear(color, depth)
	c.counters.Clears++
}

func (c *Context) SetDepthTest(enabled bool) {
	if c.depthTest == enabled {
		return
	}
	c.dev.SetDepthTest(enabled)
	c.depthTest = enabled
}

func (c *Context) DrawFullscreenQuad() {
	c.mustDraw("DrawFullscreenQuad")
	c.dev.DrawFullscreenQuad()
	c.counters.Draws++
}

func (c *Context) DrawMesh(id MeshID) {
	c.mustDraw("DrawMesh")
	c.dev.DrawMesh(id)
	c.counters.Draws++
}

func (c *Context) mustDraw(op string) {
	if !c.targetBound {
		panic("gpu: " + op + " with no target bound")
	}
	if c.program == 0 {
		panic("gpu: " + op + " with no program bound")
	}
}

// ReadPixels reads RGBA8 pixels from the bound target, bottom row first.
func (c *Context) ReadPixels(x, y, width, height int) ([]byte, error) {
	if !c.targetBound {
		panic("gpu: ReadPixels with no target bound")
	}
	return c.dev.ReadPixels(x, y, width, height)
}

func (c *Context) Counters() Counters { return c.counters }
func (c *Context) ResetCounters()     { c.counters = Counters{} }
