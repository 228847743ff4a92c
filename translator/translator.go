// Package translator converts WebGL2 shader sources to the dialect of the
// running OpenGL backend.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// GetTranslator returns the process-wide translator, creating it on first use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, initErr
}

// Result is a translated stage. Names maps each uniform name as written in
// the source to the name it has in Code.
type Result struct {
	Code  string
	Names map[string]string
}

// Translate converts a WebGL2 source of the given stage ("vertex" or
// "fragment") to GLSL 4.10, or to ESSL when gles is set.
func Translate(source, stage string, gles bool) (*Result, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", err)
	}
	outputFormat := gst.OutputFormatGLSL410
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	sh, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	res := &Result{Code: sh.Code, Names: make(map[string]string, len(sh.Variables))}
	for name, v := range sh.Variables {
		res.Names[name] = v.MappedName
	}
	return res, nil
}
