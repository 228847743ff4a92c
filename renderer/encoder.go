package renderer

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/logger"
)

// EncoderConfig describes the video an FFmpegSink writes.
type EncoderConfig struct {
	Width  int
	Height int
	FPS    int
	Output string
	// Codec is "h264" or "hevc".
	Codec string
	// FFMPEGPath overrides the ffmpeg binary found on PATH.
	FFMPEGPath string
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg process.
type FFmpegSink struct {
	pw        *io.PipeWriter
	errc      chan error
	frameSize int
}

var _ FrameSink = (*FFmpegSink)(nil)

// NewFFmpegSink starts ffmpeg reading frames from a pipe.
func NewFFmpegSink(cfg EncoderConfig) *FFmpegSink {
	pr, pw := io.Pipe()
	cmd := ffmpeg.Input("pipe:", inputArgs(cfg)).
		Output(cfg.Output, outputArgs(runtime.GOOS, cfg)).
		OverWriteOutput().WithInput(pr).ErrorToStdOut()
	if cfg.FFMPEGPath != "" {
		cmd = cmd.SetFfmpegPath(cfg.FFMPEGPath)
	}

	s := &FFmpegSink{
		pw:        pw,
		errc:      make(chan error, 1),
		frameSize: cfg.Width * cfg.Height * 4,
	}
	go func() {
		err := cmd.Run()
		if err != nil {
			err = fmt.Errorf("renderer: ffmpeg: %w", err)
		}
		// unblock a writer if ffmpeg exits early
		pr.CloseWithError(err)
		s.errc <- err
	}()
	logger.Log.Info("encoder started", zap.String("output", cfg.Output), zap.String("codec", cfg.Codec))
	return s
}

func (s *FFmpegSink) WriteFrame(f *Frame) error {
	if len(f.Pixels) != s.frameSize {
		return fmt.Errorf("renderer: frame is %d bytes, want %d", len(f.Pixels), s.frameSize)
	}
	_, err := s.pw.Write(f.Pixels)
	return err
}

// Close ends the input stream and waits for ffmpeg to exit.
func (s *FFmpegSink) Close() error {
	s.pw.Close()
	return <-s.errc
}

func inputArgs(cfg EncoderConfig) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"framerate": cfg.FPS,
	}
}

func outputArgs(goos string, cfg EncoderConfig) ffmpeg.KwArgs {
	hevc := cfg.Codec == "hevc"
	// frames are read back bottom row first
	args := ffmpeg.KwArgs{"vf": "vflip", "pix_fmt": "yuv420p", "b:v": "25M"}

	switch goos {
	case "linux":
		args["preset"] = "p2"
		if hevc {
			args["c:v"] = "hevc_nvenc"
		} else {
			args["c:v"] = "h264_nvenc"
		}
	case "darwin":
		if hevc {
			args["c:v"] = "hevc_videotoolbox"
		} else {
			args["c:v"] = "h264_videotoolbox"
		}
	default:
		if hevc {
			args["c:v"] = "libx265"
		} else {
			args["c:v"] = "libx264"
		}
	}
	logger.Log.Debug("encoder selected", zap.String("os", goos), zap.Any("codec", args["c:v"]))

	if hevc && strings.HasSuffix(cfg.Output, ".mp4") {
		args["tag:v"] = "hvc1"
	}
	return args
}
