// Package renderer drives the frame loop: it draws the scene into the
// post-processing pipeline, presents the graded result and either swaps it
// to a window or hands it to a frame sink for recording.
package renderer

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/drawlist"
	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/graphics"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/lut"
	"github.com/richinsley/gopostfx/postfx"
	"github.com/richinsley/gopostfx/scene"
)

type Renderer struct {
	context  graphics.Context
	ctx      *gpu.Context
	pipeline *postfx.Pipeline
	scene    *scene.Scene
	luts     *lut.Cache
	// lutModes maps a cleaned table path to the modes that use it.
	lutModes map[string][]grading.Mode
	cfg      Config

	fps     FPS
	frame   int64
	stats   drawlist.Stats
	changes <-chan string
}

// NewRenderer loads the lookup tables and builds the pipeline and scene on
// dev. The window's context is made current first. A lookup table that
// cannot be loaded fails construction.
func NewRenderer(window graphics.Context, dev gpu.Device, cfg Config) (*Renderer, error) {
	window.MakeCurrent()

	r := &Renderer{
		context:  window,
		ctx:      gpu.NewContext(dev),
		lutModes: make(map[string][]grading.Mode),
		cfg:      cfg,
	}
	var err error
	r.luts, err = lut.NewCache(2 * grading.Count)
	if err != nil {
		return nil, err
	}

	var cubes [grading.Count]*lut.Cube
	for m, path := range cfg.LUTPaths {
		mode := grading.Mode(m)
		cubes[m], err = r.luts.Load(path)
		if err != nil {
			return nil, fmt.Errorf("renderer: %s grading: %w", mode, err)
		}
		key := filepath.Clean(path)
		r.lutModes[key] = append(r.lutModes[key], mode)
	}

	lib := postfx.NewLibrary(r.ctx, cfg.Shaders)
	r.pipeline = postfx.NewPipeline(lib, postfx.Config{
		Cubes:      cubes,
		LUTUnit:    cfg.LUTUnit,
		ClearColor: cfg.ClearColor,
		BlurPasses: cfg.BlurPasses,
		Greyscale:  cfg.Greyscale,
		Selector:   cfg.Selector,
	})

	width, height := cfg.Width, cfg.Height
	if !cfg.Record {
		width, height = window.GetFramebufferSize()
	}
	if err := r.pipeline.Init(width, height); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.scene, err = scene.Build(lib)
	if err != nil {
		r.pipeline.Release()
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r.scene.Camera.SetViewport(width, height)

	logger.Log.Info("renderer ready",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("record", cfg.Record),
		zap.Stringer("mode", r.Mode()))
	return r, nil
}

func (r *Renderer) Pipeline() *postfx.Pipeline { return r.pipeline }
func (r *Renderer) Scene() *scene.Scene        { return r.scene }
func (r *Renderer) Context() *gpu.Context      { return r.ctx }
func (r *Renderer) FPS() *FPS                  { return &r.fps }

// Frames is the number of frames rendered so far.
func (r *Renderer) Frames() int64 { return r.frame }

// Stats returns the draw statistics of the last frame.
func (r *Renderer) Stats() drawlist.Stats { return r.stats }

// SetSelector sets the grading selector; see grading.ModeFor.
func (r *Renderer) SetSelector(v float32) {
	before := r.Mode()
	r.pipeline.Grading().SetSelector(v)
	if m := r.Mode(); m != before {
		logger.Log.Info("grading mode changed", zap.Stringer("mode", m))
	}
}

func (r *Renderer) Selector() float32 { return r.pipeline.Grading().Selector() }

func (r *Renderer) Mode() grading.Mode { return r.pipeline.Grading().Mode() }

// RenderFrame advances the scene by dt seconds and presents one frame to
// the default framebuffer. Pending lookup table reloads are applied first.
// In window mode the pipeline follows the framebuffer size.
func (r *Renderer) RenderFrame(dt float32) error {
	r.applyChanges()
	if !r.cfg.Record {
		if err := r.resize(r.context.GetFramebufferSize()); err != nil {
			return err
		}
	}

	r.scene.Update(dt)
	r.pipeline.BeginScene()
	r.stats = r.scene.Draw()
	r.pipeline.EndScene()
	if err := r.pipeline.Present(); err != nil {
		return fmt.Errorf("renderer: frame %d: %w", r.frame, err)
	}
	r.frame++
	return nil
}

func (r *Renderer) resize(width, height int) error {
	// a minimized window reports a zero size
	if width <= 0 || height <= 0 {
		return nil
	}
	if err := r.pipeline.Reshape(width, height); err != nil {
		return fmt.Errorf("renderer: resize to %dx%d: %w", width, height, err)
	}
	r.scene.Camera.SetViewport(width, height)
	return nil
}

// Run renders until the window asks to close, swapping each frame to the
// window. Frame times are clamped to one second.
func (r *Renderer) Run() error {
	last := r.context.Time()
	for !r.context.ShouldClose() {
		now := r.context.Time()
		dt := r.fps.Add(float32(now - last))
		last = now

		if err := r.RenderFrame(dt); err != nil {
			return err
		}
		r.context.EndFrame()

		if r.frame%fpsSamples == 0 {
			lo, hi, avg := r.fps.Stats()
			logger.Log.Info("frame rate",
				zap.Int64("frame", r.frame),
				zap.Float32("min", lo),
				zap.Float32("max", hi),
				zap.Float32("avg", avg),
				zap.Int("draws", r.stats.Draws))
		}
	}
	return nil
}

// Shutdown frees the scene, the pipeline and cached tables. The window is
// left to its owner.
func (r *Renderer) Shutdown() {
	r.scene.Release()
	r.pipeline.Release()
	r.luts.Purge()
	logger.Log.Info("renderer shut down", zap.Int64("frames", r.frame))
}
