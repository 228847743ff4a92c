// Package postfx composes render targets and programs into a chain of
// screen-space post-processing passes.
//
// For a chain P1..Pn the caller renders into P1, then calls
// P2.ApplyEffect(P1), ..., Pn.ApplyEffect(Pn-1) and finally Pn.DrawToScreen.
// Each ApplyEffect resamples the previous pass's resolved color output
// through a fullscreen quad, so the chain's output is the composition of the
// passes' transforms.
package postfx

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/shader"
	"go.uber.org/zap"
)

// ErrOutOfSequence is returned when a chain is driven in the wrong order: a
// pass consumes an input that was not resolved this frame, or a pass whose
// output was already consumed is presented.
var ErrOutOfSequence = errors.New("postfx: pass used out of sequence")

// InputUnit is the sampler unit a pass reads its input from.
const InputUnit = 0

// Effect is a post-processing stage. Variants embed *Pass, which provides
// the chaining protocol, and override what they need.
type Effect interface {
	Name() string
	Init(width, height int) error
	ApplyEffect(prev Effect) error
	DrawToScreen() error
	Reshape(width, height int) error
	ClearAll()
	Release()
	// Output is the target holding the pass's resolved color.
	Output() *gpu.RenderTarget
	Resolved() bool

	pass() *Pass
}

// Pass is the base effect. Slot 0 holds a color+depth target and the shared
// passthrough program; variants append further targets and programs.
type Pass struct {
	ctx  *gpu.Context
	lib  *Library
	name string

	targets  []*gpu.RenderTarget
	programs []*gpu.Program
	width    int
	height   int

	clearColor  mgl32.Vec4
	boundBuffer int
	boundShader int

	resolved    bool
	consumed    bool
	initialized bool
	released    bool
}

var _ Effect = (*Pass)(nil)

// NewPass returns an uninitialized pass building its programs from lib.
func NewPass(lib *Library, name string) *Pass {
	return &Pass{
		ctx:         lib.Context(),
		lib:         lib,
		name:        name,
		clearColor:  mgl32.Vec4{0, 0, 0, 1},
		boundBuffer: -1,
		boundShader: -1,
	}
}

func (p *Pass) pass() *Pass    { return p }
func (p *Pass) Name() string   { return p.name }
func (p *Pass) Resolved() bool { return p.resolved }

// Init allocates the slot-0 target and program. On failure everything the
// pass allocated is released.
func (p *Pass) Init(width, height int) error {
	if p.initialized || p.released {
		panic(fmt.Sprintf("postfx: %s initialized twice", p.name))
	}
	if _, err := p.AddTarget(width, height, true); err != nil {
		p.Release()
		return err
	}
	if _, err := p.AddProgram(shader.PassthroughVert, shader.PassthroughFrag); err != nil {
		p.Release()
		return err
	}
	p.width, p.height = width, height
	p.initialized = true
	logger.Log.Debug("pass initialized", zap.String("pass", p.name), zap.Int("width", width), zap.Int("height", height))
	return nil
}

// AddTarget appends an RGBA8 target, with a depth attachment if depth is set.
// The target is not kept if allocation fails.
func (p *Pass) AddTarget(width, height int, depth bool) (*gpu.RenderTarget, error) {
	t := gpu.NewRenderTarget(p.ctx)
	t.AddColorAttachment(gpu.FormatRGBA8)
	if depth {
		t.AddDepthAttachment()
	}
	t.SetClearColor(p.clearColor)
	if err := t.Allocate(width, height); err != nil {
		return nil, fmt.Errorf("postfx: %s: target %d: %w", p.name, len(p.targets), err)
	}
	p.targets = append(p.targets, t)
	return t, nil
}

// AddProgram appends the shared program for a stage pair.
func (p *Pass) AddProgram(vert, frag string) (*gpu.Program, error) {
	prog, err := p.lib.Program(vert, frag)
	if err != nil {
		return nil, fmt.Errorf("postfx: %s: %w", p.name, err)
	}
	p.programs = append(p.programs, prog)
	return prog, nil
}

// Target returns the target in slot i. It panics if the slot is empty.
func (p *Pass) Target(i int) *gpu.RenderTarget {
	if i < 0 || i >= len(p.targets) {
		panic(fmt.Sprintf("postfx: %s has no target %d", p.name, i))
	}
	return p.targets[i]
}

// Program returns the program in slot i. It panics if the slot is empty.
func (p *Pass) Program(i int) *gpu.Program {
	if i < 0 || i >= len(p.programs) {
		panic(fmt.Sprintf("postfx: %s has no program %d", p.name, i))
	}
	return p.programs[i]
}

func (p *Pass) Output() *gpu.RenderTarget { return p.Target(0) }

func (p *Pass) Size() (int, int) { return p.width, p.height }

// SetClearColor sets the color ClearAll clears every target to.
func (p *Pass) SetClearColor(c mgl32.Vec4) {
	p.clearColor = c
	for _, t := range p.targets {
		t.SetClearColor(c)
	}
}

// BindBuffer makes target i the draw destination, for rendering into the
// pass directly.
func (p *Pass) BindBuffer(i int) {
	p.Target(i).Bind()
	p.boundBuffer = i
}

// UnbindBuffer restores the default destination. Unbinding slot 0 marks the
// pass resolved for this frame.
func (p *Pass) UnbindBuffer() {
	if p.boundBuffer < 0 {
		return
	}
	p.targets[p.boundBuffer].Unbind()
	if p.boundBuffer == 0 {
		p.resolved = true
		p.consumed = false
	}
	p.boundBuffer = -1
}

func (p *Pass) BindColorAsTexture(i, colorBuffer, unit int) {
	p.Target(i).BindColorAsTexture(colorBuffer, unit)
}

func (p *Pass) BindDepthAsTexture(i, unit int) {
	p.Target(i).BindDepthAsTexture(unit)
}

// UnbindTexture clears a sampler unit bound from any of the pass's targets.
func (p *Pass) UnbindTexture(unit int) {
	for _, t := range p.targets {
		t.UnbindTexture(unit)
	}
}

func (p *Pass) BindShader(i int) {
	p.Program(i).Bind()
	p.boundShader = i
}

func (p *Pass) UnbindShader() {
	if p.boundShader < 0 {
		return
	}
	p.programs[p.boundShader].Unbind()
	p.boundShader = -1
}

// ApplyEffect resolves prev's output into this pass through the passthrough
// program.
func (p *Pass) ApplyEffect(prev Effect) error {
	if err := p.begin(prev); err != nil {
		return err
	}
	p.Resample(0, prev.Output(), p.Output(), nil)
	p.finish(prev)
	return nil
}

// Resample draws src through program slot prog into dst. setup, if not nil,
// runs with the program bound before the draw to set per-draw uniforms.
func (p *Pass) Resample(prog int, src, dst *gpu.RenderTarget, setup func(*gpu.Program)) {
	p.BindShader(prog)
	program := p.programs[prog]
	program.SetUniform("u_Tex", int32(InputUnit))
	if setup != nil {
		setup(program)
	}
	src.BindColorAsTexture(0, InputUnit)
	dst.RenderFullscreenQuad()
	src.UnbindTexture(InputUnit)
	p.UnbindShader()
}

// begin checks that prev can be consumed by p this frame.
func (p *Pass) begin(prev Effect) error {
	if !p.initialized || p.released {
		return fmt.Errorf("%w: %s is not initialized", ErrOutOfSequence, p.name)
	}
	if prev == nil {
		return fmt.Errorf("%w: %s applied without an input", ErrOutOfSequence, p.name)
	}
	if prev.pass() == p {
		return fmt.Errorf("%w: %s applied to itself", ErrOutOfSequence, p.name)
	}
	if !prev.Resolved() {
		return fmt.Errorf("%w: %s consumes %s before it is resolved", ErrOutOfSequence, p.name, prev.Name())
	}
	return nil
}

func (p *Pass) finish(prev Effect) {
	prev.pass().consumed = true
	p.resolved = true
	p.consumed = false
}

// DrawToScreen presents the pass's output to the default framebuffer. It
// must be the last step of a chain.
func (p *Pass) DrawToScreen() error {
	if !p.initialized || p.released {
		return fmt.Errorf("%w: %s is not initialized", ErrOutOfSequence, p.name)
	}
	if !p.resolved {
		return fmt.Errorf("%w: %s presented before it is resolved", ErrOutOfSequence, p.name)
	}
	if p.consumed {
		return fmt.Errorf("%w: %s presented but it is not the last pass", ErrOutOfSequence, p.name)
	}
	p.ctx.BindScreen()
	p.BindShader(0)
	p.programs[0].SetUniform("u_Tex", int32(InputUnit))
	p.BindColorAsTexture(0, 0, InputUnit)
	p.Output().DrawFullscreenQuad()
	p.UnbindTexture(InputUnit)
	p.UnbindShader()
	p.ctx.UnbindTarget()
	return nil
}

// Reshape resizes every target. A target that cannot be resized is released
// and the error returned; the pass must then be released.
func (p *Pass) Reshape(width, height int) error {
	if p.released {
		return gpu.ErrReleased
	}
	for i, t := range p.targets {
		if err := t.Reshape(width, height); err != nil {
			return fmt.Errorf("postfx: %s: reshape target %d: %w", p.name, i, err)
		}
	}
	p.width, p.height = width, height
	return nil
}

// ClearAll clears every target and starts a new frame for the pass.
func (p *Pass) ClearAll() {
	for _, t := range p.targets {
		t.Clear()
	}
	p.resolved = false
	p.consumed = false
}

// Release frees the targets and drops the program references. It is safe to
// call more than once, including on a pass whose Init failed.
func (p *Pass) Release() {
	if p.released {
		return
	}
	p.UnbindShader()
	p.UnbindBuffer()
	for _, t := range p.targets {
		t.Release()
	}
	p.targets = nil
	p.programs = nil
	p.released = true
	p.resolved = false
}
