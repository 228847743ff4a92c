package gpu

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a released resource is asked to allocate storage again.
var ErrReleased = errors.New("gpu: resource released")

// ResourceError reports a render target that could not be allocated or
// reshaped. No storage is left behind when it is returned.
type ResourceError struct {
	Op          string
	Width       int
	Height      int
	Attachments []Format
	Reason      string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gpu: %s render target %dx%d %v: %s", e.Op, e.Width, e.Height, e.Attachments, e.Reason)
}

// CompileError carries the compiler diagnostic for a failed shader stage.
type CompileError struct {
	Stage      StageKind
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gpu: failed to compile %s shader: %s", e.Stage, e.Diagnostic)
}

// LinkError carries the linker diagnostic for a failed program.
type LinkError struct {
	Diagnostic string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("gpu: failed to link program: %s", e.Diagnostic)
}
