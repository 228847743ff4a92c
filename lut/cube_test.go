package lut

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const warm2 = `# warm tint
TITLE "Warm"
LUT_3D_SIZE 2
DOMAIN_MIN 0 0 0
DOMAIN_MAX 1 1 1

0.1 0.0 0.0
1.0 0.0 0.0
0.1 0.9 0.0
1.0 0.9 0.0
0.1 0.0 0.8
1.0 0.0 0.8
0.1 0.9 0.8
1.0 0.9 0.8
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(warm2))
	require.NoError(t, err)
	assert.Equal(t, "Warm", c.Title)
	assert.Equal(t, 2, c.Size)
	assert.Len(t, c.Data, 24)
	// red varies fastest
	assert.Equal(t, [3]float32{1, 0, 0}, c.At(1, 0, 0))
	assert.Equal(t, [3]float32{0.1, 0.9, 0}, c.At(0, 1, 0))
	assert.Equal(t, [3]float32{1, 0.9, 0.8}, c.At(1, 1, 1))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		msg   string
	}{
		{"missing size", "0 0 0\n", 1, "before LUT_3D_SIZE"},
		{"empty", "# nothing\n", 0, "missing LUT_3D_SIZE"},
		{"1d", "LUT_1D_SIZE 4\n", 1, "1D"},
		{"size too small", "LUT_3D_SIZE 1\n", 1, "outside"},
		{"size not a number", "LUT_3D_SIZE big\n", 1, "outside"},
		{"duplicate size", "LUT_3D_SIZE 2\nLUT_3D_SIZE 2\n", 2, "duplicate"},
		{"short row", "LUT_3D_SIZE 2\n0 0\n", 2, "want 3 values"},
		{"bad float", "LUT_3D_SIZE 2\n0 x 0\n", 2, "bad value"},
		{"nan", "LUT_3D_SIZE 2\n0 NaN 0\n", 2, "non-finite"},
		{"too few rows", "LUT_3D_SIZE 2\n0 0 0\n", 0, "got 1 samples, want 8"},
		{"too many rows", "LUT_3D_SIZE 2\n" + strings.Repeat("0 0 0\n", 9), 10, "more than 8"},
		{"empty domain", "LUT_3D_SIZE 2\nDOMAIN_MAX 1 0 1\n" + strings.Repeat("0 0 0\n", 8), 0, "empty domain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Msg, tt.msg)
		})
	}
}

func TestIdentity(t *testing.T) {
	c := Identity(3)
	assert.Equal(t, [3]float32{0, 0, 0}, c.At(0, 0, 0))
	assert.Equal(t, [3]float32{0.5, 0, 1}, c.At(1, 0, 2))
	assert.Equal(t, [3]float32{1, 1, 1}, c.At(2, 2, 2))
}

func TestLoadReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cube")
	require.NoError(t, os.WriteFile(path, []byte("LUT_3D_SIZE 2\n0 0\n"), 0o644))

	_, err := Load(path)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)
	assert.Equal(t, "lut: "+path+":2: want 3 values, got 2", err.Error())

	_, err = Load(filepath.Join(dir, "missing.cube"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
