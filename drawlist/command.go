package drawlist

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/gpu"
)

// Command is one mesh drawn with a material at a model transform.
type Command struct {
	Mesh      *gpu.Mesh
	Material  *Material
	Transform mgl32.Mat4
}

// Compare orders commands by render layer, then program, then material.
// Commands with equal keys compare as 0.
func Compare(a, b Command) int {
	if c := cmp.Compare(a.Material.layer, b.Material.layer); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Material.program.ID(), b.Material.program.ID()); c != 0 {
		return c
	}
	return cmp.Compare(a.Material.id, b.Material.id)
}

// Sort orders cmds by Compare, keeping the input order of equal keys.
func Sort(cmds []Command) {
	slices.SortStableFunc(cmds, Compare)
}

// Runs counts the contiguous runs of equal program and equal material in
// cmds. Issuing a sorted list binds exactly programs programs and applies
// exactly materials materials.
func Runs(cmds []Command) (programs, materials int) {
	var prog *gpu.Program
	var mat *Material
	for _, c := range cmds {
		if c.Material.program != prog {
			prog = c.Material.program
			programs++
		}
		if c.Material != mat {
			mat = c.Material
			materials++
		}
	}
	return programs, materials
}

// List collects the commands of one frame.
type List struct {
	cmds []Command
}

func (l *List) Add(mesh *gpu.Mesh, material *Material, transform mgl32.Mat4) {
	l.cmds = append(l.cmds, Command{Mesh: mesh, Material: material, Transform: transform})
}

func (l *List) Append(cmds ...Command) { l.cmds = append(l.cmds, cmds...) }

// Reset empties the list, keeping its storage.
func (l *List) Reset() { l.cmds = l.cmds[:0] }

func (l *List) Len() int { return len(l.cmds) }

func (l *List) Commands() []Command { return l.cmds }

func (l *List) Sort() { Sort(l.cmds) }
