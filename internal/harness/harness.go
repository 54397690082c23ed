package harness

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/recordgraph/internal/compiler"
	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/insurance"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/query"
	"github.com/roach88/recordgraph/internal/queryir"
	"github.com/roach88/recordgraph/internal/seed"
	"github.com/roach88/recordgraph/internal/testutil"
)

// Harness executes scenario steps against one engine. Steps go through the
// engine's Run loop, one at a time.
type Harness struct {
	engine *engine.Engine
	clock  *directory.Clock
	logger *zap.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *zap.Logger
}

// WithLogger sets the logger handed to the engine and used for step logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run executes a scenario in a fresh engine and returns the result.
//
// Execution flow:
// 1. Build the engine from the scenario's schema, seed and calendar
// 2. Execute setup steps, failing the run if one errors
// 3. Execute steps and check their expect clauses
// 4. Evaluate assertions against the trace and the final state
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	eng, err := newEngine(scenario, cfg.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	defer func() {
		eng.Stop()
		<-done
	}()

	h := &Harness{
		engine: eng,
		clock:  directory.NewClock(),
		logger: cfg.logger.With(zap.String("scenario", scenario.Name)),
	}

	result := NewResult()
	result.TraceID = eng.NewTrace()

	for i, step := range scenario.Setup {
		ev, _, err := h.execute(ctx, step)
		result.AddTrace(ev)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, ev.Label(), err)
		}
	}

	for i, step := range scenario.Steps {
		ev, out, err := h.execute(ctx, step)
		result.AddTrace(ev)
		for _, msg := range checkExpect(step.Expect, out, err) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, ev.Label(), msg))
		}
	}

	actx := &AssertionContext{Engine: eng, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		zap.Bool("pass", result.Pass),
		zap.Int("steps", len(result.Trace)),
		zap.String("trace_id", result.TraceID),
	)
	return result, nil
}

func newEngine(s *Scenario, logger *zap.Logger) (*engine.Engine, error) {
	today := s.Today
	if today == "" {
		today = DefaultToday
	}
	day, err := time.Parse(ir.DateLayout, today)
	if err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	cal := testutil.NewFixedCalendar(day.Year(), day.Month(), day.Day())

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTraceGenerator(testutil.NewFixedTraceGenerator(s.TraceID)),
	}

	var eng *engine.Engine
	if s.Schema == "" || s.Schema == Builtin {
		eng, err = insurance.New(cal, s.Seed == Builtin, opts...)
	} else {
		var schema *ir.Schema
		if schema, err = compiler.Load(s.Schema); err == nil {
			eng, err = engine.New(schema, opts...)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	if s.Seed != "" && s.Seed != Builtin {
		data, err := seed.LoadFile(s.Seed)
		if err != nil {
			return nil, err
		}
		if _, err := seed.Apply(eng, data); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// outcome is what a successful step returned.
type outcome struct {
	many    bool
	ids     []string
	count   *int
	record  ir.IRValue
	created *bool
}

// trace renders the outcome for the trace and golden files.
func (o outcome) trace() any {
	res := ir.IRObject{}
	if o.many {
		ids := make(ir.IRArray, len(o.ids))
		for i, id := range o.ids {
			ids[i] = ir.IRString(id)
		}
		res["ids"] = ids
		if o.count != nil {
			res["count"] = ir.NewIRInt(int64(*o.count))
		}
	}
	if o.record != nil {
		res["record"] = o.record
	}
	if o.created != nil {
		res["created"] = ir.IRBool(*o.created)
	}
	if len(res) == 0 {
		return nil
	}
	return res
}

// execute runs one step on the engine's loop and records it.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, outcome, error) {
	ev := TraceEvent{
		Seq:    h.clock.Next(),
		Op:     step.Op,
		Type:   step.Type,
		ID:     step.ID,
		Target: step.Target,
	}

	var out outcome
	err := h.engine.Do(ctx, func(e *engine.Engine) error {
		var err error
		out, err = apply(e, step)
		return err
	})
	if err != nil {
		ev.Outcome = string(ir.CodeOf(err))
		if ev.Outcome == "" {
			ev.Outcome = "ERROR"
		}
		h.logger.Debug("step failed", zap.Int64("seq", ev.Seq), zap.String("step", ev.Label()), zap.Error(err))
		return ev, out, err
	}

	ev.Outcome = OutcomeOK
	ev.Result = out.trace()
	h.logger.Debug("step completed", zap.Int64("seq", ev.Seq), zap.String("step", ev.Label()))
	return ev, out, nil
}

func apply(e *engine.Engine, step Step) (outcome, error) {
	switch step.Op {
	case OpQuery, OpRelated:
		opts, err := step.options()
		if err != nil {
			return outcome{}, err
		}
		var res *query.Result
		if step.Op == OpQuery {
			res, err = e.Query(step.Type, opts)
		} else {
			res, err = e.QueryRelated(step.Type, step.ID, step.Target, opts)
		}
		if err != nil {
			return outcome{}, err
		}
		return outcome{many: true, ids: res.IDs(), count: res.Count}, nil

	case OpGet:
		obj, err := e.Get(step.Type, step.ID)
		if err != nil {
			return outcome{}, err
		}
		return outcome{record: obj}, nil

	case OpRelatedOne:
		var key *queryir.KeyPredicate
		if step.Key != nil {
			key = &queryir.KeyPredicate{Name: step.Key.Name, Value: step.Key.Value}
		}
		v, err := e.RelatedOne(step.Type, step.ID, step.Target, key)
		if err != nil {
			return outcome{}, err
		}
		return outcome{record: v}, nil

	case OpCreate:
		payload, err := step.payload(e)
		if err != nil {
			return outcome{}, err
		}
		obj, err := e.Create(step.Type, payload)
		if err != nil {
			return outcome{}, err
		}
		return outcome{record: obj}, nil

	case OpUpdate, OpUpsert:
		payload, err := ir.ObjectFromGo(step.Payload)
		if err != nil {
			return outcome{}, ir.NewInvalidArgument("payload: %v", err)
		}
		force := engine.ForceNulls(step.Method)
		if step.Op == OpUpdate {
			obj, err := e.Update(step.Type, step.ID, payload, force)
			if err != nil {
				return outcome{}, err
			}
			return outcome{record: obj}, nil
		}
		obj, created, err := e.Upsert(step.Type, step.ID, payload, force)
		if err != nil {
			return outcome{}, err
		}
		return outcome{record: obj, created: &created}, nil

	case OpDelete:
		return outcome{}, e.Delete(step.Type, step.ID)
	}
	return outcome{}, ir.NewInvalidArgument("unknown op %q", step.Op)
}

func (s Step) options() (queryir.Options, error) {
	return queryir.RawOptions{
		Filter:  s.Filter,
		OrderBy: s.OrderBy,
		Skip:    s.Skip,
		Top:     s.Top,
		Count:   s.Count,
		Select:  s.Select,
		Expand:  s.Expand,
	}.Parse()
}

// payload converts the step payload; a step id becomes the key field.
func (s Step) payload(e *engine.Engine) (ir.IRObject, error) {
	obj, err := ir.ObjectFromGo(s.Payload)
	if err != nil {
		return nil, ir.NewInvalidArgument("payload: %v", err)
	}
	if s.ID == "" {
		return obj, nil
	}
	t, err := e.Directory().MustTable(s.Type)
	if err != nil {
		return nil, err
	}
	obj[t.Key().Name] = ir.IRString(s.ID)
	return obj, nil
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(exp *ExpectClause, out outcome, err error) []string {
	if exp != nil && exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", exp.Error)}
		}
		if code := string(ir.CodeOf(err)); code != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %v", exp.Error, err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}
	if exp == nil {
		return nil
	}

	var errs []string
	if exp.Count != nil {
		got := len(out.ids)
		if out.count != nil {
			got = *out.count
		}
		if got != *exp.Count {
			errs = append(errs, fmt.Sprintf("count = %d, want %d", got, *exp.Count))
		}
	}
	if exp.IDs != nil && !slices.Equal(exp.IDs, out.ids) {
		errs = append(errs, fmt.Sprintf("ids = %v, want %v", out.ids, exp.IDs))
	}
	if exp.Record != nil {
		obj, ok := out.record.(ir.IRObject)
		if ok {
			errs = append(errs, matchRecord(obj, exp.Record)...)
		} else {
			errs = append(errs, "expected a record, got none")
		}
	}
	if exp.Created != nil && (out.created == nil || *out.created != *exp.Created) {
		errs = append(errs, fmt.Sprintf("created = %v, want %v", out.created != nil && *out.created, *exp.Created))
	}
	if exp.Null && !ir.IsNull(out.record) {
		errs = append(errs, fmt.Sprintf("expected null, got %s", ir.Text(out.record)))
	}
	return errs
}
