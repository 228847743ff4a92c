package postfx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/lut"
	"go.uber.org/zap"
)

// DefaultClearColor is the background of the scene accumulation target.
var DefaultClearColor = mgl32.Vec4{0.08, 0.17, 0.31, 1}

// Config describes a pipeline.
type Config struct {
	// Cubes are the Neutral, Cool, Warm and Custom lookup tables.
	Cubes [grading.Count]*lut.Cube
	// LUTUnit is the sampler unit tables are bound to. Zero means
	// DefaultLUTUnit.
	LUTUnit int
	// ClearColor is the scene background. The zero value means
	// DefaultClearColor.
	ClearColor mgl32.Vec4
	// BlurPasses adds a blur stage with that many iterations when positive.
	BlurPasses int
	// Greyscale adds a greyscale stage.
	Greyscale bool
	// Selector is the initial grading selector.
	Selector float32
}

// Pipeline renders a scene into an accumulation pass, runs it through the
// configured effects and the color grading stage, and presents the result.
type Pipeline struct {
	ctx *gpu.Context
	lib *Library
	cfg Config

	scene   *Pass
	effects []Effect
	grading *ColorGrading

	width    int
	height   int
	inScene  bool
	released bool
}

func NewPipeline(lib *Library, cfg Config) *Pipeline {
	if cfg.LUTUnit == 0 {
		cfg.LUTUnit = DefaultLUTUnit
	}
	if cfg.ClearColor == (mgl32.Vec4{}) {
		cfg.ClearColor = DefaultClearColor
	}
	p := &Pipeline{ctx: lib.Context(), lib: lib, cfg: cfg}
	p.scene = NewPass(lib, "scene")
	p.scene.SetClearColor(cfg.ClearColor)
	if cfg.BlurPasses > 0 {
		p.effects = append(p.effects, NewBlur(lib, cfg.BlurPasses))
	}
	if cfg.Greyscale {
		p.effects = append(p.effects, NewGreyscale(lib))
	}
	p.grading = NewColorGrading(lib, cfg.Cubes, cfg.LUTUnit)
	p.grading.SetSelector(cfg.Selector)
	return p
}

// Init allocates every pass at the drawable size. If any pass fails, all
// passes and the shared programs are released before the error is returned.
func (p *Pipeline) Init(width, height int) error {
	p.ctx.SetScreenSize(width, height)
	for _, e := range p.Passes() {
		if err := e.Init(width, height); err != nil {
			p.Release()
			return fmt.Errorf("postfx: pipeline init: %w", err)
		}
	}
	p.width, p.height = width, height
	logger.Log.Info("pipeline initialized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("passes", len(p.Passes())),
		zap.Int("programs", p.lib.Len()))
	return nil
}

// Passes returns the chain in order: scene, effects, grading.
func (p *Pipeline) Passes() []Effect {
	passes := make([]Effect, 0, len(p.effects)+2)
	passes = append(passes, p.scene)
	passes = append(passes, p.effects...)
	return append(passes, p.grading)
}

func (p *Pipeline) Scene() *Pass              { return p.scene }
func (p *Pipeline) Grading() *ColorGrading    { return p.grading }
func (p *Pipeline) Library() *Library         { return p.lib }
func (p *Pipeline) Context() *gpu.Context     { return p.ctx }
func (p *Pipeline) Size() (width, height int) { return p.width, p.height }

// BeginScene clears every pass and makes the accumulation target the draw
// destination with depth testing enabled.
func (p *Pipeline) BeginScene() {
	if p.inScene {
		panic("postfx: BeginScene called twice")
	}
	for _, e := range p.Passes() {
		e.ClearAll()
	}
	p.scene.BindBuffer(0)
	p.ctx.SetDepthTest(true)
	p.inScene = true
}

// EndScene resolves the accumulation target.
func (p *Pipeline) EndScene() {
	if !p.inScene {
		panic("postfx: EndScene without BeginScene")
	}
	p.ctx.SetDepthTest(false)
	p.scene.UnbindBuffer()
	p.inScene = false
}

// Present runs the chain on the resolved scene and draws the graded result
// to the screen.
func (p *Pipeline) Present() error {
	var prev Effect = p.scene
	for _, e := range p.effects {
		if err := e.ApplyEffect(prev); err != nil {
			return err
		}
		prev = e
	}
	if err := p.grading.ApplyEffect(prev); err != nil {
		return err
	}
	return p.grading.DrawToScreen()
}

// Reshape resizes every pass to the new drawable size. Reshaping to the
// current size does nothing.
func (p *Pipeline) Reshape(width, height int) error {
	if width == p.width && height == p.height {
		return nil
	}
	if p.inScene {
		panic("postfx: Reshape during a scene")
	}
	for _, e := range p.Passes() {
		if err := e.Reshape(width, height); err != nil {
			return err
		}
	}
	p.width, p.height = width, height
	p.ctx.SetScreenSize(width, height)
	logger.Log.Debug("pipeline reshaped", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// Release frees every pass, then the shared programs. It is safe to call
// more than once.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	if p.inScene {
		p.ctx.SetDepthTest(false)
		p.scene.UnbindBuffer()
		p.inScene = false
	}
	for _, e := range p.Passes() {
		e.Release()
	}
	p.lib.Release()
	p.released = true
	logger.Log.Debug("pipeline released")
}
