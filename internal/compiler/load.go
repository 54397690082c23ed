package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/recordgraph/internal/ir"
)

// ErrNoFiles is returned by Load for a directory without .cue files.
var ErrNoFiles = errors.New("no CUE files found")

// Load compiles and validates a schema from a .cue file or a directory of
// .cue files.
func Load(path string) (*ir.Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema path: %w", err)
	}

	var v cue.Value
	if info.IsDir() {
		v, err = buildDir(path)
	} else {
		v, err = buildFile(path)
	}
	if err != nil {
		return nil, err
	}

	schema, err := CompileSchema(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(schema); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return schema, nil
}

// ValidationErrors joins the result of Validate into one error.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func buildFile(path string) (cue.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read schema: %w", err)
	}
	v := cuecontext.New().CompileBytes(src, cue.Filename(path))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

func buildDir(dir string) (cue.Value, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", err)
	}

	v := cuecontext.New().BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// FindCUEFiles walks dir and returns every .cue file path.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
