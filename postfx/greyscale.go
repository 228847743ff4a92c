package postfx

import "github.com/richinsley/gopostfx/shader"

// Greyscale replaces colors by their luma.
type Greyscale struct {
	*Pass
}

var _ Effect = (*Greyscale)(nil)

func NewGreyscale(lib *Library) *Greyscale {
	return &Greyscale{Pass: NewPass(lib, "greyscale")}
}

func (g *Greyscale) Init(width, height int) error {
	if err := g.Pass.Init(width, height); err != nil {
		return err
	}
	if _, err := g.AddProgram(shader.PassthroughVert, shader.GreyscaleFrag); err != nil {
		g.Release()
		return err
	}
	return nil
}

func (g *Greyscale) ApplyEffect(prev Effect) error {
	if err := g.begin(prev); err != nil {
		return err
	}
	g.Resample(1, prev.Output(), g.Output(), nil)
	g.finish(prev)
	return nil
}
