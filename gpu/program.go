package gpu

import (
	"fmt"

	"github.com/richinsley/gopostfx/logger"
	"go.uber.org/zap"
)

// Program is a linked GPU program with a typed uniform cache. Uniforms set
// before Link are kept and uploaded once the link succeeds, in the order they
// were first set.
type Program struct {
	ctx      *Context
	name     string
	stages   []StageID
	id       ProgramID
	linked   bool
	released bool

	uniforms map[string]any
	order    []string
	// uploaded holds the value the device last received for each uniform.
	uploaded map[string]any
}

// NewProgram returns an empty program. name is only used in log output.
func NewProgram(ctx *Context, name string) *Program {
	return &Program{
		ctx:      ctx,
		name:     name,
		uniforms: make(map[string]any),
		uploaded: make(map[string]any),
	}
}

// AddStage compiles source as a stage of the program.
func (p *Program) AddStage(source string, kind StageKind) error {
	if p.released {
		return ErrReleased
	}
	if p.linked {
		panic("gpu: stage added to a linked program")
	}
	id, err := p.ctx.dev.CompileStage(source, kind)
	if err != nil {
		return err
	}
	p.stages = append(p.stages, id)
	return nil
}

// Link links the accumulated stages and uploads the deferred uniforms. The
// compiled stages are freed once the link succeeds.
func (p *Program) Link() error {
	if p.released {
		return ErrReleased
	}
	if p.linked {
		panic("gpu: program linked twice")
	}
	id, err := p.ctx.dev.LinkProgram(p.stages)
	if err != nil {
		logger.Log.Error("failed to link program", zap.String("program", p.name), zap.Error(err))
		return err
	}
	p.deleteStages()
	p.id = id
	p.linked = true
	for _, name := range p.order {
		p.upload(name, p.uniforms[name])
	}
	logger.Log.Debug("program linked",
		zap.String("program", p.name),
		zap.Uint32("id", uint32(id)),
		zap.Int("deferred_uniforms", len(p.order)))
	return nil
}

// SetUniform stores value under name and uploads it if the program is linked
// and the device does not already hold that value. It panics on a value type
// no device can upload.
func (p *Program) SetUniform(name string, value any) {
	if err := CheckUniform(value); err != nil {
		panic(fmt.Sprintf("%v (uniform %q)", err, name))
	}
	if p.released {
		return
	}
	if _, ok := p.uniforms[name]; !ok {
		p.order = append(p.order, name)
	}
	p.uniforms[name] = value
	if p.linked {
		p.upload(name, value)
	}
}

func (p *Program) upload(name string, value any) {
	if prev, ok := p.uploaded[name]; ok && prev == value {
		return
	}
	p.ctx.dev.SetUniform(p.id, name, value)
	p.uploaded[name] = value
}

// Uniform returns the cached value of a uniform.
func (p *Program) Uniform(name string) (any, bool) {
	v, ok := p.uniforms[name]
	return v, ok
}

// Bind makes the program current. It panics if the program is not linked.
func (p *Program) Bind() {
	if p.released {
		return
	}
	if !p.linked {
		panic(fmt.Sprintf("gpu: program %q bound before link", p.name))
	}
	p.ctx.UseProgram(p.id)
}

// Unbind clears the current program if it is this one.
func (p *Program) Unbind() {
	if p.linked && p.ctx.BoundProgram() == p.id {
		p.ctx.UnuseProgram()
	}
}

func (p *Program) Bound() bool {
	return p.linked && p.ctx.BoundProgram() == p.id
}

func (p *Program) ID() ProgramID { return p.id }
func (p *Program) Name() string  { return p.name }
func (p *Program) Linked() bool  { return p.linked }

// Release frees the program and any stages not yet linked. It is safe to call
// more than once.
func (p *Program) Release() {
	if p.released {
		return
	}
	p.Unbind()
	p.deleteStages()
	if p.id != 0 {
		p.ctx.dev.DeleteProgram(p.id)
	}
	p.id = 0
	p.linked = false
	p.released = true
}

func (p *Program) deleteStages() {
	for _, s := range p.stages {
		p.ctx.dev.DeleteStage(s)
	}
	p.stages = nil
}
