package renderer

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/logger"
)

// Watch makes the renderer reload a lookup table whenever its path arrives
// on changes. Reloads are applied at the start of the next frame.
func (r *Renderer) Watch(changes <-chan string) { r.changes = changes }

// ReloadLUT re-reads the table at path and swaps it into every grading mode
// that uses it. On failure the current tables stay in use.
func (r *Renderer) ReloadLUT(path string) error {
	key := filepath.Clean(path)
	modes, ok := r.lutModes[key]
	if !ok {
		return fmt.Errorf("renderer: %s is not a grading table", path)
	}
	r.luts.Invalidate(key)
	cube, err := r.luts.Load(key)
	if err != nil {
		return fmt.Errorf("renderer: reload: %w", err)
	}
	var errs []error
	for _, m := range modes {
		errs = append(errs, r.pipeline.Grading().ReplaceCube(m, cube))
	}
	return errors.Join(errs...)
}

func (r *Renderer) applyChanges() {
	for r.changes != nil {
		select {
		case path, ok := <-r.changes:
			if !ok {
				r.changes = nil
				return
			}
			if err := r.ReloadLUT(path); err != nil {
				logger.Log.Warn("lookup table not reloaded", zap.String("path", path), zap.Error(err))
			}
		default:
			return
		}
	}
}
