package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/gopostfx/gpu"
)

type target struct {
	fbo         uint32
	attachments []gpu.Format
	textures    []uint32
	width       int
	height      int
}

type formatInfo struct {
	internal int32
	format   uint32
	typ      uint32
}

func glFormat(f gpu.Format) (formatInfo, error) {
	switch f {
	case gpu.FormatRGBA8:
		return formatInfo{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case gpu.FormatDepth24:
		return formatInfo{gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT}, nil
	default:
		return formatInfo{}, fmt.Errorf("unsupported attachment format %s", f)
	}
}

func (d *Device) CreateTarget(attachments []gpu.Format, width, height int) (gpu.TargetID, error) {
	t := &target{attachments: append([]gpu.Format(nil), attachments...)}
	if err := d.buildTarget(t, width, height); err != nil {
		return 0, &gpu.ResourceError{Op: "allocate", Width: width, Height: height, Attachments: t.attachments, Reason: err.Error()}
	}
	id := gpu.TargetID(d.id())
	d.targets[id] = t
	return id, nil
}

// ResizeTarget rebuilds the target's storage. On failure the target is gone.
func (d *Device) ResizeTarget(id gpu.TargetID, width, height int) error {
	t := d.mustTarget(id)
	d.deleteStorage(t)
	if err := d.buildTarget(t, width, height); err != nil {
		delete(d.targets, id)
		return &gpu.ResourceError{Op: "reshape", Width: width, Height: height, Attachments: t.attachments, Reason: err.Error()}
	}
	return nil
}

// buildTarget creates the framebuffer and one texture per attachment, and
// deletes everything it created if the result is incomplete.
func (d *Device) buildTarget(t *target, width, height int) error {
	var maxSize int32
	gl.GetIntegerv(gl.MAX_RENDERBUFFER_SIZE, &maxSize)
	if width <= 0 || height <= 0 || width > int(maxSize) || height > int(maxSize) {
		return fmt.Errorf("size outside 1..%d", maxSize)
	}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	var drawBuffers []uint32
	for _, f := range t.attachments {
		info, err := glFormat(f)
		if err != nil {
			d.deleteStorage(t)
			return err
		}
		var tex uint32
		gl.GenTextures(1, &tex)
		t.textures = append(t.textures, tex)
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexImage2D(gl.TEXTURE_2D, 0, info.internal, int32(width), int32(height), 0, info.format, info.typ, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

		attachment := uint32(gl.DEPTH_ATTACHMENT)
		if f.IsColor() {
			attachment = gl.COLOR_ATTACHMENT0 + uint32(len(drawBuffers))
			drawBuffers = append(drawBuffers, attachment)
		}
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, tex, 0)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if len(drawBuffers) > 0 {
		gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		d.deleteStorage(t)
		return fmt.Errorf("framebuffer is not complete: 0x%X", status)
	}
	t.width, t.height = width, height
	return nil
}

func (d *Device) deleteStorage(t *target) {
	if len(t.textures) > 0 {
		gl.DeleteTextures(int32(len(t.textures)), &t.textures[0])
	}
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
	t.textures = nil
	t.fbo = 0
}

func (d *Device) DeleteTarget(id gpu.TargetID) {
	t := d.mustTarget(id)
	d.deleteStorage(t)
	delete(d.targets, id)
}

func (d *Device) mustTarget(id gpu.TargetID) *target {
	t, ok := d.targets[id]
	if !ok {
		panic(fmt.Sprintf("gldevice: unknown target %d", id))
	}
	return t
}

func (d *Device) AttachmentTexture(id gpu.TargetID, index int) gpu.TextureID {
	return gpu.TextureID(d.mustTarget(id).textures[index])
}

func (d *Device) BindTarget(id gpu.TargetID) {
	if id == gpu.Screen {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.mustTarget(id).fbo)
}
