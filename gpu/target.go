package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/logger"
	"go.uber.org/zap"
)

type targetState int

const (
	targetDescribed targetState = iota
	targetAllocated
	targetReleased
)

// RenderTarget is an off-screen draw destination with a fixed set of
// attachments. Attachments are declared before Allocate and never change
// afterwards; Reshape only changes the dimensions.
//
// A RenderTarget is released explicitly. Once released it is inert: binds,
// clears and draws are ignored and Allocate/Reshape return ErrReleased.
type RenderTarget struct {
	ctx         *Context
	id          TargetID
	attachments []Format
	width       int
	height      int
	state       targetState
	bound       bool
	units       map[int]struct{}

	clearColor mgl32.Vec4
	clearDepth float32
}

func NewRenderTarget(ctx *Context) *RenderTarget {
	return &RenderTarget{
		ctx:        ctx,
		units:      make(map[int]struct{}),
		clearColor: mgl32.Vec4{0, 0, 0, 1},
		clearDepth: 1,
	}
}

// AddColorAttachment declares a color attachment. Color attachments are
// numbered in the order they are added.
func (t *RenderTarget) AddColorAttachment(f Format) {
	t.mustDescribe()
	if !f.IsColor() {
		panic(fmt.Sprintf("gpu: %s is not a color format", f))
	}
	t.attachments = append(t.attachments, f)
}

// AddDepthAttachment declares the depth attachment. A target has at most one.
func (t *RenderTarget) AddDepthAttachment() {
	t.mustDescribe()
	if t.depthIndex() >= 0 {
		panic("gpu: render target already has a depth attachment")
	}
	t.attachments = append(t.attachments, FormatDepth24)
}

func (t *RenderTarget) mustDescribe() {
	if t.state != targetDescribed {
		panic("gpu: attachments can only be added before allocation")
	}
}

// Allocate creates storage for every declared attachment. On error nothing
// is allocated and the target may be allocated again.
func (t *RenderTarget) Allocate(width, height int) error {
	switch t.state {
	case targetReleased:
		return ErrReleased
	case targetAllocated:
		panic("gpu: render target already allocated")
	}
	if len(t.attachments) == 0 {
		return &ResourceError{Op: "allocate", Width: width, Height: height, Reason: "no attachments"}
	}
	if width <= 0 || height <= 0 {
		return &ResourceError{Op: "allocate", Width: width, Height: height, Attachments: t.Attachments(), Reason: "invalid size"}
	}
	id, err := t.ctx.dev.CreateTarget(t.Attachments(), width, height)
	if err != nil {
		return err
	}
	t.id = id
	t.width, t.height = width, height
	t.state = targetAllocated
	logger.Log.Debug("render target allocated",
		zap.Uint32("id", uint32(id)),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Stringers("attachments", t.attachments))
	return nil
}

// Reshape reallocates storage at a new size. Reshaping to the current size is
// a no-op. If the new storage cannot be created the target is released.
func (t *RenderTarget) Reshape(width, height int) error {
	switch t.state {
	case targetReleased:
		return ErrReleased
	case targetDescribed:
		panic("gpu: reshape of an unallocated render target")
	}
	if t.bound {
		panic("gpu: reshape of a bound render target")
	}
	if width == t.width && height == t.height {
		return nil
	}
	if width <= 0 || height <= 0 {
		t.Release()
		return &ResourceError{Op: "reshape", Width: width, Height: height, Attachments: t.Attachments(), Reason: "invalid size"}
	}
	// sampled attachments are about to be replaced
	for unit := range t.units {
		t.ctx.UnbindTexture(unit)
		delete(t.units, unit)
	}
	if err := t.ctx.dev.ResizeTarget(t.id, width, height); err != nil {
		t.id = 0
		t.Release()
		return err
	}
	t.width, t.height = width, height
	logger.Log.Debug("render target reshaped",
		zap.Uint32("id", uint32(t.id)),
		zap.Int("width", width),
		zap.Int("height", height))
	return nil
}

// Bind makes the target the active draw destination.
func (t *RenderTarget) Bind() {
	if !t.mustAllocated() {
		return
	}
	t.ctx.BindTarget(t.id, t.width, t.height)
	t.bound = true
}

// Unbind restores the default destination if the target is bound.
func (t *RenderTarget) Unbind() {
	if !t.bound {
		return
	}
	t.ctx.UnbindTarget()
	t.bound = false
}

func (t *RenderTarget) Bound() bool { return t.bound }

// SetClearColor changes the color Clear writes to color attachments.
func (t *RenderTarget) SetClearColor(c mgl32.Vec4) { t.clearColor = c }

// Clear clears every attachment to its clear value. An unbound target is
// bound for the duration of the clear.
func (t *RenderTarget) Clear() {
	if !t.mustAllocated() {
		return
	}
	if t.bound {
		t.ctx.Clear(t.clearColor, t.clearDepth)
		return
	}
	t.Bind()
	t.ctx.Clear(t.clearColor, t.clearDepth)
	t.Unbind()
}

// BindColorAsTexture exposes color attachment index on a sampler unit.
func (t *RenderTarget) BindColorAsTexture(index, unit int) {
	if !t.mustAllocated() {
		return
	}
	att := t.colorIndex(index)
	if att < 0 {
		panic(fmt.Sprintf("gpu: render target has no color attachment %d", index))
	}
	t.bindTexture(att, unit)
}

// BindDepthAsTexture exposes the depth attachment on a sampler unit.
func (t *RenderTarget) BindDepthAsTexture(unit int) {
	if !t.mustAllocated() {
		return
	}
	att := t.depthIndex()
	if att < 0 {
		panic("gpu: render target has no depth attachment")
	}
	t.bindTexture(att, unit)
}

func (t *RenderTarget) bindTexture(att, unit int) {
	t.ctx.BindTexture(unit, Texture2D, t.ctx.dev.AttachmentTexture(t.id, att))
	t.units[unit] = struct{}{}
}

// UnbindTexture clears a sampler unit this target was bound to.
func (t *RenderTarget) UnbindTexture(unit int) {
	if _, ok := t.units[unit]; !ok {
		return
	}
	t.ctx.UnbindTexture(unit)
	delete(t.units, unit)
}

// RenderFullscreenQuad draws a covering quad into this target with the
// currently bound program and inputs.
func (t *RenderTarget) RenderFullscreenQuad() {
	if !t.mustAllocated() {
		return
	}
	t.Bind()
	t.ctx.DrawFullscreenQuad()
	t.Unbind()
}

// DrawFullscreenQuad draws a covering quad into the current destination
// instead of this target. Used to present a target's sampled attachments.
func (t *RenderTarget) DrawFullscreenQuad() {
	if !t.mustAllocated() {
		return
	}
	if t.bound {
		panic("gpu: render target sampled while it is the draw destination")
	}
	t.ctx.DrawFullscreenQuad()
}

// Release frees the target's storage. It is safe to call more than once.
func (t *RenderTarget) Release() {
	if t.state == targetReleased {
		return
	}
	for unit := range t.units {
		t.ctx.UnbindTexture(unit)
		delete(t.units, unit)
	}
	t.Unbind()
	if t.id != 0 {
		t.ctx.dev.DeleteTarget(t.id)
		logger.Log.Debug("render target released", zap.Uint32("id", uint32(t.id)))
	}
	t.id = 0
	t.state = targetReleased
}

func (t *RenderTarget) mustAllocated() bool {
	switch t.state {
	case targetReleased:
		return false
	case targetDescribed:
		panic("gpu: render target used before allocation")
	}
	return true
}

// Attachments returns a copy of the declared attachment formats.
func (t *RenderTarget) Attachments() []Format {
	return append([]Format(nil), t.attachments...)
}

func (t *RenderTarget) Size() (int, int) { return t.width, t.height }
func (t *RenderTarget) ID() TargetID     { return t.id }
func (t *RenderTarget) Allocated() bool  { return t.state == targetAllocated }
func (t *RenderTarget) Released() bool   { return t.state == targetReleased }

func (t *RenderTarget) colorIndex(index int) int {
	n := 0
	for i, f := range t.attachments {
		if !f.IsColor() {
			continue
		}
		if n == index {
			return i
		}
		n++
	}
	return -1
}

func (t *RenderTarget) depthIndex() int {
	for i, f := range t.attachments {
		if f.IsDepth() {
			return i
		}
	}
	return -1
}
