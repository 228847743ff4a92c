package drawlist

import (
	"fmt"

	"github.com/richinsley/gopostfx/gpu"
)

// Stats counts the state changes and draws of one Issue.
type Stats struct {
	Draws           int
	ProgramBinds    int
	MaterialApplies int
}

// Issue draws cmds in order into the bound target. A program is bound, and
// set up with frame, only when it differs from the previous command's; a
// material is applied only when it differs from the previous command's. The
// program and material textures are unbound on return.
//
// Issue does not sort; pass a list ordered by Sort to get one bind per
// program run and one apply per material run.
func Issue(ctx *gpu.Context, cmds []Command, frame *Frame) Stats {
	var (
		stats Stats
		prog  *gpu.Program
		mat   *Material
	)
	vp := frame.viewProjection()

	for i, c := range cmds {
		if c.Material == nil || c.Mesh == nil {
			panic(fmt.Sprintf("drawlist: command %d has no mesh or material", i))
		}
		if p := c.Material.program; p != prog {
			if mat != nil {
				mat.Unapply(ctx)
				mat = nil
			}
			if prog != nil {
				prog.Unbind()
			}
			p.Bind()
			frame.Setup(p)
			prog = p
			stats.ProgramBinds++
		}
		if c.Material != mat {
			if mat != nil {
				mat.Unapply(ctx)
			}
			c.Material.Apply(ctx)
			mat = c.Material
			stats.MaterialApplies++
		}

		prog.SetUniform("u_ModelViewProjection", vp.Mul4(c.Transform))
		prog.SetUniform("u_Model", c.Transform)
		prog.SetUniform("u_NormalMatrix", c.Transform.Mat3().Inv().Transpose())
		c.Mesh.Draw()
		stats.Draws++
	}

	if mat != nil {
		mat.Unapply(ctx)
	}
	if prog != nil {
		prog.Unbind()
	}
	return stats
}
