package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gopostfx/grading"
	"github.com/richinsley/gopostfx/shader"
)

// Config describes what a Renderer draws and how.
type Config struct {
	// Width and Height size the pipeline in record mode. In window mode the
	// framebuffer size is used.
	Width  int
	Height int
	Record bool

	// LUTPaths are the Neutral, Cool, Warm and Custom lookup table files.
	LUTPaths   [grading.Count]string
	LUTUnit    int
	Selector   float32
	BlurPasses int
	Greyscale  bool
	ClearColor mgl32.Vec4
	Shaders    shader.Loader
}
