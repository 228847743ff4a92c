package postfx

import (
	"fmt"

	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/logger"
	"github.com/richinsley/gopostfx/lut"
	"github.com/richinsley/gopostfx/shader"
	"go.uber.org/zap"
)

// DefaultLUTUnit is the sampler unit lookup tables are bound to.
const DefaultLUTUnit = 30

// ColorGrading resolves its input through one of four lookup tables, chosen
// by the grading selector. Exactly one table is bound, and only for the
// duration of the draw.
type ColorGrading struct {
	*Pass

	cubes    [grading.Count]*lut.Cube
	tables   [grading.Count]*lut.Table
	unit     int
	selector float32
}

var _ Effect = (*ColorGrading)(nil)

// NewColorGrading returns a grading pass for the Neutral, Cool, Warm and
// Custom tables, in that order. Every table must be present.
func NewColorGrading(lib *Library, cubes [grading.Count]*lut.Cube, unit int) *ColorGrading {
	return &ColorGrading{
		Pass:  NewPass(lib, "color-grading"),
		cubes: cubes,
		unit:  unit,
	}
}

// Init allocates the pass and uploads the four tables. A missing table fails
// Init; no other table is substituted.
func (g *ColorGrading) Init(width, height int) error {
	if g.unit == InputUnit || g.unit < 0 {
		return fmt.Errorf("postfx: lookup table unit %d collides with the input unit", g.unit)
	}
	for m, c := range g.cubes {
		if c == nil {
			return fmt.Errorf("postfx: no lookup table for %s grading", grading.Mode(m))
		}
	}
	if err := g.Pass.Init(width, height); err != nil {
		return err
	}
	if _, err := g.AddProgram(shader.PassthroughVert, shader.ColorCorrectionFrag); err != nil {
		g.Release()
		return err
	}

	for m, c := range g.cubes {
		t, err := lut.NewTable(g.ctx, c)
		if err != nil {
			g.Release()
			return fmt.Errorf("postfx: %s grading: %w", grading.Mode(m), err)
		}
		g.tables[m] = t
	}
	logger.Log.Info("color grading initialized", zap.Int("lut_unit", g.unit), zap.Stringer("mode", g.Mode()))
	return nil
}

// SetSelector sets the grading selector. See grading.ModeFor.
func (g *ColorGrading) SetSelector(v float32) {
	g.selector = grading.Clamp(v)
}

func (g *ColorGrading) Selector() float32 { return g.selector }

func (g *ColorGrading) SetMode(m grading.Mode) { g.SetSelector(m.Selector()) }

func (g *ColorGrading) Mode() grading.Mode { return grading.ModeFor(g.selector) }

func (g *ColorGrading) Unit() int { return g.unit }

// Table returns the uploaded table of a mode, nil before Init.
func (g *ColorGrading) Table(m grading.Mode) *lut.Table { return g.tables[m] }

// ApplyEffect resolves prev through the table of the current mode.
func (g *ColorGrading) ApplyEffect(prev Effect) error {
	if err := g.begin(prev); err != nil {
		return err
	}
	src, table := prev.Output(), g.tables[g.Mode()]

	g.BindShader(1)
	prog := g.Program(1)
	prog.SetUniform("u_Tex", int32(InputUnit))
	prog.SetUniform("u_Lut", int32(g.unit))
	src.BindColorAsTexture(0, InputUnit)
	table.Bind(g.unit)
	g.Output().RenderFullscreenQuad()
	table.Unbind(g.unit)
	src.UnbindTexture(InputUnit)
	g.UnbindShader()

	g.finish(prev)
	return nil
}

// ReplaceCube swaps the table of a mode. The new table is uploaded before
// the old one is released, so a failed upload leaves the old table in use.
func (g *ColorGrading) ReplaceCube(m grading.Mode, c *lut.Cube) error {
	if !m.Valid() {
		return fmt.Errorf("postfx: invalid grading mode %d", int(m))
	}
	if g.tables[m] == nil {
		g.cubes[m] = c
		return nil
	}
	t, err := lut.NewTable(g.ctx, c)
	if err != nil {
		return fmt.Errorf("postfx: %s grading: %w", m, err)
	}
	g.tables[m].Release()
	g.tables[m] = t
	g.cubes[m] = c
	logger.Log.Info("lookup table replaced", zap.Stringer("mode", m), zap.String("title", c.Title))
	return nil
}

// Release frees the tables and the pass. It is safe to call more than once.
func (g *ColorGrading) Release() {
	for m, t := range g.tables {
		if t != nil {
			t.Release()
			g.tables[m] = nil
		}
	}
	g.Pass.Release()
}
