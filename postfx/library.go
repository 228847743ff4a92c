package postfx

import (
	"fmt"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/shader"
	"go.uber.org/zap"
)

type programKey struct {
	vert, frag string
}

// Library builds programs from shader assets and shares them between every
// pass and material that asks for the same stage pair. It owns the programs:
// they live until the Library is released, which happens once at pipeline
// teardown after every holder is gone.
type Library struct {
	ctx      *gpu.Context
	loader   shader.Loader
	programs map[programKey]*gpu.Program
	order    []programKey
	released bool
}

func NewLibrary(ctx *gpu.Context, loader shader.Loader) *Library {
	return &Library{
		ctx:      ctx,
		loader:   loader,
		programs: make(map[programKey]*gpu.Program),
	}
}

// Context returns the binding context programs are created on.
func (l *Library) Context() *gpu.Context { return l.ctx }

// Program returns the linked program for a vertex and fragment asset,
// building it on first use. A program that fails to build is released and
// not cached.
func (l *Library) Program(vert, frag string) (*gpu.Program, error) {
	if l.released {
		return nil, gpu.ErrReleased
	}
	key := programKey{vert, frag}
	if p, ok := l.programs[key]; ok {
		return p, nil
	}

	p := gpu.NewProgram(l.ctx, vert+"+"+frag)
	if err := l.build(p, key); err != nil {
		p.Release()
		return nil, fmt.Errorf("postfx: program %s: %w", p.Name(), err)
	}
	l.programs[key] = p
	l.order = append(l.order, key)
	logger.Log.Debug("program built", zap.String("vertex", vert), zap.String("fragment", frag))
	return p, nil
}

func (l *Library) build(p *gpu.Program, key programKey) error {
	for _, s := range []struct {
		name string
		kind gpu.StageKind
	}{{key.vert, gpu.VertexStage}, {key.frag, gpu.FragmentStage}} {
		src, err := l.loader.Load(s.name)
		if err != nil {
			return err
		}
		if err := p.AddStage(src, s.kind); err != nil {
			return err
		}
	}
	return p.Link()
}

// Len returns the number of programs built so far.
func (l *Library) Len() int { return len(l.programs) }

// Release frees every program in build order. It is safe to call more than
// once.
func (l *Library) Release() {
	if l.released {
		return
	}
	for _, key := range l.order {
		l.programs[key].Release()
	}
	l.programs = nil
	l.order = nil
	l.released = true
}
