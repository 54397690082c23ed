package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/recordgraph/internal/compiler"
	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/insurance"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/seed"
)

// fixedDay is the calendar behind --today.
type fixedDay time.Time

func (d fixedDay) Today() time.Time { return time.Time(d) }

func (o *RootOptions) calendar() (insurance.Calendar, error) {
	if o.Today == "" {
		return insurance.SystemCalendar{}, nil
	}
	day, err := time.Parse(ir.DateLayout, o.Today)
	if err != nil {
		return nil, fmt.Errorf("--today: expected YYYY-MM-DD, got %q", o.Today)
	}
	return fixedDay(day), nil
}

// openEngine builds the engine described by the global flags and stamps
// the formatter with a fresh trace id. Failures are reported through f and
// returned as command errors.
func (o *RootOptions) openEngine(f *OutputFormatter) (*engine.Engine, error) {
	traces := o.traces
	if traces == nil {
		traces = engine.UUIDv7Generator{}
	}
	f.TraceID = traces.Generate()
	logger := o.Logger().With(zap.String("trace_id", f.TraceID))

	cal, err := o.calendar()
	if err != nil {
		return nil, o.commandError(f, ErrCodeBadInput, err)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	var eng *engine.Engine
	if o.Schema == "" {
		eng, err = insurance.New(cal, o.Data == "", opts...)
		if err != nil {
			return nil, o.commandError(f, ErrCodeBuildFailed, err)
		}
	} else {
		schema, err := loadSchema(o.Schema)
		if err != nil {
			return nil, o.commandError(f, schemaErrorCode(err), err)
		}
		if eng, err = engine.New(schema, opts...); err != nil {
			return nil, o.commandError(f, ErrCodeBuildFailed, err)
		}
	}

	if o.Data != "" {
		data, err := seed.LoadFile(o.Data)
		if err != nil {
			return nil, o.commandError(f, ErrCodeLoadFailed, err)
		}
		n, err := seed.Apply(eng, data)
		if err != nil {
			return nil, o.commandError(f, ErrCodeLoadFailed, err)
		}
		f.VerboseLog("Loaded %d record(s) from %s", n, o.Data)
	}
	return eng, nil
}

// loadSchema compiles a schema path, reporting a missing path distinctly.
func loadSchema(path string) (*ir.Schema, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &pathError{path: path, err: err}
	}
	return compiler.Load(path)
}

type pathError struct {
	path string
	err  error
}

func (e *pathError) Error() string { return fmt.Sprintf("schema not found: %s", e.path) }
func (e *pathError) Unwrap() error { return e.err }

// schemaErrorCode maps a schema load failure to a CLI error code.
func schemaErrorCode(err error) string {
	var perr *pathError
	var verrs compiler.ValidationErrors
	var cerr *compiler.CompileError
	switch {
	case errors.As(err, &perr):
		return ErrCodeNotFound
	case errors.Is(err, compiler.ErrNoFiles):
		return ErrCodeNoFiles
	case errors.As(err, &verrs):
		return verrs[0].Code
	case errors.As(err, &cerr):
		return ErrCodeBuildFailed
	default:
		return ErrCodeLoadFailed
	}
}

func (o *RootOptions) commandError(f *OutputFormatter, code string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}
