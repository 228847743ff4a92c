// Package options holds the command-line configuration. Values come from
// flags, and from an optional TOML file for any flag not given explicitly.
package options

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/richinsley/gopostfx/grading"
)

const (
	ModeWindow = "window"
	ModeRecord = "record"
)

type Options struct {
	Config     *string
	Help       *bool
	Mode       *string
	Duration   *float64
	FPS        *int
	Width      *int
	Height     *int
	OutputFile *string
	FFMPEGPath *string
	Codec      *string
	GLES       *bool

	AssetDir   *string
	NeutralLUT *string
	CoolLUT    *string
	WarmLUT    *string
	CustomLUT  *string
	Selector   *float64
	LUTUnit    *int
	BlurPasses *int
	Greyscale  *bool
	Watch      *bool

	CPUProfile *string
	LogLevel   *string

	fs *flag.FlagSet
}

// fileConfig mirrors Options for the TOML file. Keys match the flag names.
type fileConfig struct {
	Mode       *string  `toml:"mode"`
	Duration   *float64 `toml:"duration"`
	FPS        *int     `toml:"fps"`
	Width      *int     `toml:"width"`
	Height     *int     `toml:"height"`
	OutputFile *string  `toml:"output"`
	FFMPEGPath *string  `toml:"ffmpeg"`
	Codec      *string  `toml:"codec"`
	GLES       *bool    `toml:"gles"`
	AssetDir   *string  `toml:"assets"`
	NeutralLUT *string  `toml:"lut-neutral"`
	CoolLUT    *string  `toml:"lut-cool"`
	WarmLUT    *string  `toml:"lut-warm"`
	CustomLUT  *string  `toml:"lut-custom"`
	Selector   *float64 `toml:"grade"`
	LUTUnit    *int     `toml:"lut-unit"`
	BlurPasses *int     `toml:"blur"`
	Greyscale  *bool    `toml:"greyscale"`
	Watch      *bool    `toml:"watch"`
	CPUProfile *string  `toml:"cpuprofile"`
	LogLevel   *string  `toml:"log-level"`
}

// Register defines the flags on fs and returns the options they fill.
func Register(fs *flag.FlagSet) *Options {
	return &Options{
		fs:         fs,
		Config:     fs.String("config", "", "TOML file with defaults for any flag not given"),
		Help:       fs.Bool("help", false, "Show help message"),
		Mode:       fs.String("mode", ModeWindow, "Run mode: 'window' or 'record'"),
		Duration:   fs.Float64("duration", 10.0, "Duration to record in seconds"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		Width:      fs.Int("width", 1280, "Width of the window or output"),
		Height:     fs.Int("height", 720, "Height of the window or output"),
		OutputFile: fs.String("output", "output.mp4", "Output file name for recording"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Codec:      fs.String("codec", "h264", "Video codec for recording: 'h264' or 'hevc'"),
		GLES:       fs.Bool("gles", false, "Translate shaders to OpenGL ES instead of desktop GLSL"),
		AssetDir:   fs.String("assets", "", "Directory with shader overrides"),
		NeutralLUT: fs.String("lut-neutral", "cubes/Neutral-512.cube", "Lookup table for neutral grading"),
		CoolLUT:    fs.String("lut-cool", "cubes/cool_lut.cube", "Lookup table for cool grading"),
		WarmLUT:    fs.String("lut-warm", "cubes/warm_lut.cube", "Lookup table for warm grading"),
		CustomLUT:  fs.String("lut-custom", "cubes/custom_lut.cube", "Lookup table for custom grading"),
		Selector:   fs.Float64("grade", 0, "Initial grading selector: 0 neutral, 1 cool, 2 warm, 3 custom"),
		LUTUnit:    fs.Int("lut-unit", 30, "Sampler unit lookup tables are bound to"),
		BlurPasses: fs.Int("blur", 0, "Blur iterations before grading (0 disables the blur)"),
		Greyscale:  fs.Bool("greyscale", false, "Convert to greyscale before grading"),
		Watch:      fs.Bool("watch", false, "Reload lookup tables when their files change"),
		CPUProfile: fs.String("cpuprofile", "", "Write a CPU profile to this directory"),
		LogLevel:   fs.String("log-level", "info", "Log level: debug, info, warn or error"),
	}
}

// Parse parses args and then applies the config file, if one was named.
func (o *Options) Parse(args []string) error {
	if err := o.fs.Parse(args); err != nil {
		return err
	}
	if *o.Config == "" {
		return nil
	}
	return o.LoadFile(*o.Config)
}

// LoadFile applies the values in a TOML file to every option whose flag was
// not set on the command line. Unknown keys are an error.
func (o *Options) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("options: %w", err)
	}
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("options: %s: %s", path, strict.String())
		}
		return fmt.Errorf("options: %s: %w", path, err)
	}

	set := make(map[string]bool)
	o.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	apply(set, "mode", o.Mode, fc.Mode)
	apply(set, "duration", o.Duration, fc.Duration)
	apply(set, "fps", o.FPS, fc.FPS)
	apply(set, "width", o.Width, fc.Width)
	apply(set, "height", o.Height, fc.Height)
	apply(set, "output", o.OutputFile, fc.OutputFile)
	apply(set, "ffmpeg", o.FFMPEGPath, fc.FFMPEGPath)
	apply(set, "codec", o.Codec, fc.Codec)
	apply(set, "gles", o.GLES, fc.GLES)
	apply(set, "assets", o.AssetDir, fc.AssetDir)
	apply(set, "lut-neutral", o.NeutralLUT, fc.NeutralLUT)
	apply(set, "lut-cool", o.CoolLUT, fc.CoolLUT)
	apply(set, "lut-warm", o.WarmLUT, fc.WarmLUT)
	apply(set, "lut-custom", o.CustomLUT, fc.CustomLUT)
	apply(set, "grade", o.Selector, fc.Selector)
	apply(set, "lut-unit", o.LUTUnit, fc.LUTUnit)
	apply(set, "blur", o.BlurPasses, fc.BlurPasses)
	apply(set, "greyscale", o.Greyscale, fc.Greyscale)
	apply(set, "watch", o.Watch, fc.Watch)
	apply(set, "cpuprofile", o.CPUProfile, fc.CPUProfile)
	apply(set, "log-level", o.LogLevel, fc.LogLevel)
	return nil
}

func apply[T any](set map[string]bool, name string, dst, src *T) {
	if src != nil && !set[name] {
		*dst = *src
	}
}

// Validate checks the options for values the renderer cannot use.
func (o *Options) Validate() error {
	var errs []error
	if *o.Mode != ModeWindow && *o.Mode != ModeRecord {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeWindow, ModeRecord, *o.Mode))
	}
	if *o.Width <= 0 || *o.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", *o.Width, *o.Height))
	}
	if *o.Mode == ModeRecord {
		if *o.FPS <= 0 {
			errs = append(errs, fmt.Errorf("fps must be positive, got %d", *o.FPS))
		}
		if *o.Duration <= 0 {
			errs = append(errs, fmt.Errorf("duration must be positive, got %g", *o.Duration))
		}
		if *o.OutputFile == "" {
			errs = append(errs, errors.New("record mode needs an output file"))
		}
		if *o.Codec != "h264" && *o.Codec != "hevc" {
			errs = append(errs, fmt.Errorf("codec must be h264 or hevc, got %q", *o.Codec))
		}
	}
	if *o.LUTUnit <= 0 || *o.LUTUnit > 31 {
		errs = append(errs, fmt.Errorf("lut-unit must be in 1..31, got %d", *o.LUTUnit))
	}
	if *o.BlurPasses < 0 {
		errs = append(errs, fmt.Errorf("blur must not be negative, got %d", *o.BlurPasses))
	}
	if s := float32(*o.Selector); math32.IsNaN(s) || s < 0 || s > grading.Max {
		errs = append(errs, fmt.Errorf("grade must be in [0, %g], got %g", grading.Max, *o.Selector))
	}
	for m, p := range o.LUTPaths() {
		if p == "" {
			errs = append(errs, fmt.Errorf("no lookup table for %s grading", grading.Mode(m)))
		}
	}
	if _, err := zapcore.ParseLevel(*o.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	return nil
}

// LUTPaths returns the lookup table files in grading mode order.
func (o *Options) LUTPaths() [grading.Count]string {
	return [grading.Count]string{*o.NeutralLUT, *o.CoolLUT, *o.WarmLUT, *o.CustomLUT}
}

func (o *Options) Record() bool { return *o.Mode == ModeRecord }

// Frames is the number of frames a recording renders.
func (o *Options) Frames() int { return int(*o.Duration * float64(*o.FPS)) }

func (o *Options) Usage() { o.fs.PrintDefaults() }
