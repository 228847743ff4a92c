// Package lut loads 3D color lookup tables and uploads them as textures.
//
// Tables use the .cube text format: an optional TITLE, a LUT_3D_SIZE N
// header, optional DOMAIN_MIN/DOMAIN_MAX lines and N^3 rows of "r g b"
// samples with red varying fastest, then green, then blue. Lines starting
// with # are comments.
package lut

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

const (
	MinSize = 2
	MaxSize = 256
)

// Cube is a parsed lookup table. Data holds Size^3 RGB triples, red fastest.
type Cube struct {
	Title     string
	Size      int
	DomainMin [3]float32
	DomainMax [3]float32
	Data      []float32
}

// At returns the sample at grid position (r, g, b).
func (c *Cube) At(r, g, b int) [3]float32 {
	i := 3 * (r + g*c.Size + b*c.Size*c.Size)
	return [3]float32{c.Data[i], c.Data[i+1], c.Data[i+2]}
}

// ParseError reports a malformed table. Line is 0 for errors found at the
// end of input.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	name := e.Path
	if name == "" {
		name = "<cube>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("lut: %s:%d: %s", name, e.Line, e.Msg)
	}
	return fmt.Sprintf("lut: %s: %s", name, e.Msg)
}

// Identity returns the table that maps every color to itself.
func Identity(size int) *Cube {
	c := &Cube{
		Title:     "identity",
		Size:      size,
		DomainMax: [3]float32{1, 1, 1},
		Data:      make([]float32, 0, size*size*size*3),
	}
	step := 1 / float32(size-1)
	for b := 0; b < size; b++ {
		for g := 0; g < size; g++ {
			for r := 0; r < size; r++ {
				c.Data = append(c.Data, float32(r)*step, float32(g)*step, float32(b)*step)
			}
		}
	}
	return c
}

// Load parses the table at path.
func Load(path string) (*Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lut: failed to open %s: %w", path, err)
	}
	defer f.Close()
	c, err := parse(f, path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Parse reads a table from r.
func Parse(r io.Reader) (*Cube, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*Cube, error) {
	c := &Cube{DomainMax: [3]float32{1, 1, 1}}
	fail := func(line int, format string, args ...any) (*Cube, error) {
		return nil, &ParseError{Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	sc := bufio.NewScanner(r)
	line := 0
	want := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "TITLE":
			c.Title = strings.Trim(strings.TrimSpace(strings.TrimPrefix(text, "TITLE")), `"`)
			continue
		case "LUT_1D_SIZE":
			return fail(line, "1D tables are not supported")
		case "LUT_3D_SIZE":
			if c.Size != 0 {
				return fail(line, "duplicate LUT_3D_SIZE")
			}
			if len(fields) != 2 {
				return fail(line, "LUT_3D_SIZE needs one value")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < MinSize || n > MaxSize {
				return fail(line, "LUT_3D_SIZE %q outside %d..%d", fields[1], MinSize, MaxSize)
			}
			c.Size = n
			want = n * n * n * 3
			c.Data = make([]float32, 0, want)
			continue
		case "DOMAIN_MIN", "DOMAIN_MAX":
			v, err := triple(fields)
			if err != nil {
				return fail(line, "%s: %v", fields[0], err)
			}
			if fields[0] == "DOMAIN_MIN" {
				c.DomainMin = v
			} else {
				c.DomainMax = v
			}
			continue
		}

		if c.Size == 0 {
			return fail(line, "sample before LUT_3D_SIZE")
		}
		if len(c.Data) == want {
			return fail(line, "more than %d samples", want/3)
		}
		v, err := triple(append([]string{""}, fields...))
		if err != nil {
			return fail(line, "%v", err)
		}
		c.Data = append(c.Data, v[0], v[1], v[2])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lut: failed to read %s: %w", path, err)
	}
	if c.Size == 0 {
		return fail(0, "missing LUT_3D_SIZE")
	}
	if len(c.Data) != want {
		return fail(0, "got %d samples, want %d", len(c.Data)/3, want/3)
	}
	for a := 0; a < 3; a++ {
		if c.DomainMin[a] >= c.DomainMax[a] {
			return fail(0, "empty domain on axis %d", a)
		}
	}
	return c, nil
}

// triple parses fields[1:4] as three finite floats.
func triple(fields []string) ([3]float32, error) {
	var v [3]float32
	if len(fields) != 4 {
		return v, fmt.Errorf("want 3 values, got %d", len(fields)-1)
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i+1], 32)
		if err != nil {
			return v, fmt.Errorf("bad value %q", fields[i+1])
		}
		v[i] = float32(f)
		if math32.IsNaN(v[i]) || math32.IsInf(v[i], 0) {
			return v, fmt.Errorf("non-finite value %q", fields[i+1])
		}
	}
	return v, nil
}
