package gldevice

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/translator"
	"go.uber.org/zap"
)

// CompileStage translates a WebGL2 source to the backend dialect and
// compiles it. Translator diagnostics are reported as compile errors too.
func (d *Device) CompileStage(source string, kind gpu.StageKind) (gpu.StageID, error) {
	res, err := translator.Translate(source, kind.String(), d.gles)
	if err != nil {
		return 0, &gpu.CompileError{Stage: kind, Diagnostic: err.Error()}
	}

	glKind := uint32(gl.VERTEX_SHADER)
	if kind == gpu.FragmentStage {
		glKind = gl.FRAGMENT_SHADER
	}
	handle := gl.CreateShader(glKind)
	csources, free := gl.Strs(res.Code + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(log))
		gl.DeleteShader(handle)
		logger.Log.Error("Failed to compile", zap.Stringer("stage", kind), zap.String("log", log))
		return 0, &gpu.CompileError{Stage: kind, Diagnostic: strings.TrimRight(log, "\x00")}
	}

	id := gpu.StageID(d.id())
	d.stages[id] = &stage{shader: handle, kind: kind, names: res.Names}
	return id, nil
}

func (d *Device) DeleteStage(id gpu.StageID) {
	s, ok := d.stages[id]
	if !ok {
		panic(fmt.Sprintf("gldevice: unknown stage %d", id))
	}
	gl.DeleteShader(s.shader)
	delete(d.stages, id)
}

func (d *Device) LinkProgram(stages []gpu.StageID) (gpu.ProgramID, error) {
	handle := gl.CreateProgram()
	names := make(map[string]string)
	for _, id := range stages {
		s, ok := d.stages[id]
		if !ok {
			panic(fmt.Sprintf("gldevice: unknown stage %d", id))
		}
		gl.AttachShader(handle, s.shader)
		for k, v := range s.names {
			names[k] = v
		}
	}
	gl.LinkProgram(handle)
	for _, id := range stages {
		gl.DetachShader(handle, d.stages[id].shader)
	}

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(log))
		gl.DeleteProgram(handle)
		return 0, &gpu.LinkError{Diagnostic: strings.TrimRight(log, "\x00")}
	}

	id := gpu.ProgramID(d.id())
	d.programs[id] = &program{handle: handle, names: names, locations: make(map[string]int32)}
	return id, nil
}

func (d *Device) DeleteProgram(id gpu.ProgramID) {
	p := d.mustProgram(id)
	gl.DeleteProgram(p.handle)
	delete(d.programs, id)
}

func (d *Device) mustProgram(id gpu.ProgramID) *program {
	p, ok := d.programs[id]
	if !ok {
		panic(fmt.Sprintf("gldevice: unknown program %d", id))
	}
	return p
}

func (d *Device) UseProgram(id gpu.ProgramID) {
	if id == 0 {
		gl.UseProgram(0)
		return
	}
	gl.UseProgram(d.mustProgram(id).handle)
}

// location resolves a source uniform name through the translator's name map.
// Uniforms the compiler optimized away resolve to -1 and are ignored by GL.
func (p *program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	mapped := name
	if m, ok := p.names[name]; ok {
		mapped = m
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(mapped+"\x00"))
	p.locations[name] = loc
	return loc
}

// SetUniform uploads a value without binding the program.
func (d *Device) SetUniform(id gpu.ProgramID, name string, value any) {
	p := d.mustProgram(id)
	loc := p.location(name)
	if loc < 0 {
		return
	}
	switch v := value.(type) {
	case float32:
		gl.ProgramUniform1f(p.handle, loc, v)
	case int32:
		gl.ProgramUniform1i(p.handle, loc, v)
	case int:
		gl.ProgramUniform1i(p.handle, loc, int32(v))
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.ProgramUniform1i(p.handle, loc, i)
	case mgl32.Vec2:
		gl.ProgramUniform2fv(p.handle, loc, 1, &v[0])
	case mgl32.Vec3:
		gl.ProgramUniform3fv(p.handle, loc, 1, &v[0])
	case mgl32.Vec4:
		gl.ProgramUniform4fv(p.handle, loc, 1, &v[0])
	case mgl32.Mat3:
		gl.ProgramUniformMatrix3fv(p.handle, loc, 1, false, &v[0])
	case mgl32.Mat4:
		gl.ProgramUniformMatrix4fv(p.handle, loc, 1, false, &v[0])
	default:
		panic(fmt.Sprintf("gldevice: unsupported uniform type %T for %q", value, name))
	}
}
