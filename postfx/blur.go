package postfx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
	"github.com/richinsley/gopostfx/shader"
)

var (
	horizontal = mgl32.Vec2{1, 0}
	vertical   = mgl32.Vec2{0, 1}
)

// Blur is a separable Gaussian blur. Each iteration blurs horizontally into
// target 1 and vertically back into target 0.
type Blur struct {
	*Pass
	iterations int
}

var _ Effect = (*Blur)(nil)

// NewBlur returns a blur running the given number of iterations. Zero
// iterations copy the input unchanged.
func NewBlur(lib *Library, iterations int) *Blur {
	return &Blur{Pass: NewPass(lib, "blur"), iterations: max(iterations, 0)}
}

func (b *Blur) Init(width, height int) error {
	if err := b.Pass.Init(width, height); err != nil {
		return err
	}
	if _, err := b.AddTarget(width, height, false); err != nil {
		b.Release()
		return err
	}
	if _, err := b.AddProgram(shader.PassthroughVert, shader.BlurFrag); err != nil {
		b.Release()
		return err
	}
	return nil
}

func (b *Blur) Iterations() int { return b.iterations }

func (b *Blur) ApplyEffect(prev Effect) error {
	if b.iterations == 0 {
		return b.Pass.ApplyEffect(prev)
	}
	if err := b.begin(prev); err != nil {
		return err
	}
	ping, pong := b.Target(1), b.Output()
	src := prev.Output()
	for i := 0; i < b.iterations; i++ {
		b.Resample(1, src, ping, direction(horizontal))
		b.Resample(1, ping, pong, direction(vertical))
		src = pong
	}
	b.finish(prev)
	return nil
}

func direction(d mgl32.Vec2) func(*gpu.Program) {
	return func(p *gpu.Program) { p.SetUniform("u_Direction", d) }
}
