package renderer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/logger"
)

// Frame is one presented frame, RGBA8 bottom row first, ready for encoding.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// FrameSink consumes recorded frames. WriteFrame is called from a single
// goroutine, and Close once after the last frame.
type FrameSink interface {
	WriteFrame(f *Frame) error
	Close() error
}

const numBuffers = 3

// ReadFrame reads back the default framebuffer at the pipeline size.
func (r *Renderer) ReadFrame() ([]byte, error) {
	width, height := r.pipeline.Size()
	r.ctx.BindScreen()
	defer r.ctx.UnbindTarget()
	pixels, err := r.ctx.ReadPixels(0, 0, width, height)
	if err != nil {
		return nil, fmt.Errorf("renderer: read frame: %w", err)
	}
	return pixels, nil
}

// RunOffscreen renders frames at a fixed time step of 1/fps and streams each
// one to sink. Rendering stops early if the sink fails. The sink is always
// closed, and its error is joined with any render error.
func (r *Renderer) RunOffscreen(sink FrameSink, frames, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("renderer: invalid frame rate %d", fps)
	}
	logger.Log.Info("recording", zap.Int("frames", frames), zap.Int("fps", fps))

	frameChan := make(chan *Frame, numBuffers)
	failed := make(chan struct{})
	encoderDone := make(chan error, 1)
	go runEncoder(sink, frameChan, failed, encoderDone)

	step := 1 / float32(fps)
	var renderErr error
produce:
	for i := range frames {
		select {
		case <-failed:
			break produce
		default:
		}
		if renderErr = r.RenderFrame(step); renderErr != nil {
			break
		}
		pixels, err := r.ReadFrame()
		if err != nil {
			renderErr = err
			break
		}
		select {
		case frameChan <- &Frame{Pixels: pixels, PTS: int64(i)}:
		case <-failed:
			break produce
		}
		if (i+1)%fpsSamples == 0 {
			logger.Log.Debug("recorded frames", zap.Int("done", i+1), zap.Int("total", frames))
		}
	}
	close(frameChan)

	err := errors.Join(renderErr, <-encoderDone)
	if err != nil {
		logger.Log.Error("recording failed", zap.Int64("frames", r.frame), zap.Error(err))
		return err
	}
	logger.Log.Info("recording finished", zap.Int64("frames", r.frame))
	return nil
}

// runEncoder drains frames into sink. After the first write error it closes
// failed and discards the rest so the producer never blocks.
func runEncoder(sink FrameSink, frames <-chan *Frame, failed chan<- struct{}, done chan<- error) {
	var err error
	for f := range frames {
		if err != nil {
			continue
		}
		if err = sink.WriteFrame(f); err != nil {
			err = fmt.Errorf("renderer: frame %d: %w", f.PTS, err)
			close(failed)
		}
	}
	done <- errors.Join(err, sink.Close())
}
