package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/assets"
	"github.com/richinsley/gopostfx/gldevice"
	"github.com/richinsley/gopostfx/glfwcontext"
	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/options"
	"github.com/richinsley/gopostfx/renderer"
	"github.com/richinsley/gopostfx/shader"
)

func init() {
	runtime.LockOSThread()
}

// gradingKeys selects a grading mode from the number row.
var gradingKeys = map[glfw.Key]grading.Mode{
	glfw.Key0: grading.Neutral,
	glfw.Key1: grading.Cool,
	glfw.Key2: grading.Warm,
	glfw.Key3: grading.Custom,
}

func run(opts *options.Options) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	// If recording, the window is hidden
	window, err := glfwcontext.New(*opts.Width, *opts.Height, !opts.Record(), "gopostfx")
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer window.Shutdown()
	window.MakeCurrent()

	dev, err := gldevice.New(*opts.GLES)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	r, err := renderer.NewRenderer(window, dev, renderer.Config{
		Width:      *opts.Width,
		Height:     *opts.Height,
		Record:     opts.Record(),
		LUTPaths:   opts.LUTPaths(),
		LUTUnit:    *opts.LUTUnit,
		Selector:   float32(*opts.Selector),
		BlurPasses: *opts.BlurPasses,
		Greyscale:  *opts.Greyscale,
		Shaders:    shader.Loader{Dir: *opts.AssetDir},
	})
	if err != nil {
		return err
	}
	defer r.Shutdown()

	if *opts.Watch {
		paths := opts.LUTPaths()
		w, err := assets.NewWatcher(paths[:]...)
		if err != nil {
			return err
		}
		defer w.Close()
		r.Watch(w.Changes())
	}

	if opts.Record() {
		sink := renderer.NewFFmpegSink(renderer.EncoderConfig{
			Width:      *opts.Width,
			Height:     *opts.Height,
			FPS:        *opts.FPS,
			Output:     *opts.OutputFile,
			Codec:      *opts.Codec,
			FFMPEGPath: *opts.FFMPEGPath,
		})
		if err := r.RunOffscreen(sink, opts.Frames(), *opts.FPS); err != nil {
			return err
		}
		logger.Log.Info("recording written", zap.String("output", *opts.OutputFile))
		return nil
	}

	for key, mode := range gradingKeys {
		window.RegisterKeyCallback(key, func() { r.SetSelector(mode.Selector()) })
	}
	logger.Log.Info("press 0-3 to switch grading, Esc to quit")
	return r.Run()
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	opts := options.Register(fs)
	if err := opts.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *opts.Help {
		fmt.Println("Post-processing and color grading demo")
		opts.Usage()
		return
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logger.Init(*opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if *opts.CPUProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*opts.CPUProfile), profile.NoShutdownHook).Stop()
	}

	if err := run(opts); err != nil {
		logger.Log.Error("gopostfx failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
