package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/merge"
	"github.com/roach88/recordgraph/internal/query"
	"github.com/roach88/recordgraph/internal/queryir"
	"github.com/roach88/recordgraph/internal/relation"
)

// TraceIDGenerator generates correlation ids for calls.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TraceIDGenerator interface {
	Generate() string
}

// Engine serves queries and writes over one record directory.
type Engine struct {
	dir     *directory.Directory
	merger  *merge.Merger
	logger  *zap.Logger
	traces  TraceIDGenerator
	queue   *opQueue
	dirOpts []directory.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTranslator installs the external-shape translator for a record type.
func WithTranslator(typeName string, fn directory.Translator) Option {
	return func(e *Engine) {
		e.dirOpts = append(e.dirOpts, directory.WithTranslator(typeName, fn))
	}
}

// WithRevisionClock starts record revisions from the given clock. Used for
// replaying a recorded session from a known sequence.
func WithRevisionClock(c *directory.Clock) Option {
	return func(e *Engine) {
		e.dirOpts = append(e.dirOpts, directory.WithClock(c))
	}
}

// WithTraceGenerator sets the trace id generator.
func WithTraceGenerator(g TraceIDGenerator) Option {
	return func(e *Engine) {
		e.traces = g
	}
}

// New builds an engine for a compiled schema.
func New(schema *ir.Schema, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: zap.NewNop(),
		traces: UUIDv7Generator{},
		queue:  newOpQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}

	dir, err := directory.New(schema, e.dirOpts...)
	if err != nil {
		return nil, err
	}
	e.dir = dir
	e.merger = merge.New(dir)

	e.logger.Debug("engine ready",
		zap.Int("types", len(schema.Types)),
		zap.Int("relations", len(schema.Relations)),
	)
	return e, nil
}

// Directory exposes the underlying record directory.
func (e *Engine) Directory() *directory.Directory { return e.dir }

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger { return e.logger }

// NewTrace returns a fresh correlation id.
func (e *Engine) NewTrace() string { return e.traces.Generate() }

// ForceNulls maps a write method to the null-overwrite policy: PUT resets
// omitted fields, PATCH and POST leave them alone.
func ForceNulls(method string) bool {
	return strings.EqualFold(method, "PUT")
}

// Query runs the collection pipeline over one record type.
func (e *Engine) Query(typeName string, opts queryir.Options) (*query.Result, error) {
	res, err := query.Run(e.dir, typeName, opts)
	if err != nil {
		return nil, e.fail("query", typeName, "", err)
	}
	return res, nil
}

// QueryRelated runs the pipeline over the records related to one source
// record. target is a navigation property or a record type name.
func (e *Engine) QueryRelated(sourceType, sourceID, target string, opts queryir.Options) (*query.Result, error) {
	src, rec, err := e.lookup(sourceType, sourceID)
	if err != nil {
		return nil, e.fail("query related", sourceType, sourceID, err)
	}
	rule, recs, err := relation.Records(e.dir, src, rec, target)
	if err != nil {
		return nil, e.fail("query related", sourceType, sourceID, err)
	}
	res, err := query.RunOn(e.dir, rule.Target, recs, opts)
	if err != nil {
		return nil, e.fail("query related", sourceType, sourceID, err)
	}
	return res, nil
}

// Get returns one record in its external shape.
func (e *Engine) Get(typeName, id string) (ir.IRObject, error) {
	k, rec, err := e.lookup(typeName, id)
	if err != nil {
		return nil, e.fail("get", typeName, id, err)
	}
	obj, err := e.dir.Translate(k, rec)
	if err != nil {
		return nil, e.fail("get", typeName, id, err)
	}
	return obj, nil
}

// GetByKeys resolves a record from key predicates. The predicate naming the
// identifier (or the only unnamed one) selects the record.
func (e *Engine) GetByKeys(typeName string, keys []queryir.KeyPredicate) (ir.IRObject, error) {
	t, err := e.dir.MustTable(typeName)
	if err != nil {
		return nil, e.fail("get", typeName, "", err)
	}
	for _, k := range keys {
		if k.Name == "" || strings.EqualFold(k.Name, t.Key().Name) {
			return e.Get(typeName, k.Value)
		}
	}
	return nil, e.fail("get", typeName, "", ir.NewInvalidArgument("no predicate names the identifier %s", t.Key().Name))
}

// RelatedCollection returns the records related to a source record.
func (e *Engine) RelatedCollection(sourceType, sourceID, target string) ([]ir.IRObject, error) {
	src, rec, err := e.lookup(sourceType, sourceID)
	if err != nil {
		return nil, e.fail("related", sourceType, sourceID, err)
	}
	rows, err := relation.Collection(e.dir, src, rec, target)
	if err != nil {
		return nil, e.fail("related", sourceType, sourceID, err)
	}
	out := make([]ir.IRObject, len(rows))
	for i, r := range rows {
		out[i] = r.Object
	}
	return out, nil
}

// RelatedOne returns a single related record, or IRNull when there is none.
func (e *Engine) RelatedOne(sourceType, sourceID, target string, key *queryir.KeyPredicate) (ir.IRValue, error) {
	src, rec, err := e.lookup(sourceType, sourceID)
	if err != nil {
		return nil, e.fail("related one", sourceType, sourceID, err)
	}
	row, err := relation.One(e.dir, src, rec, target, key)
	if err != nil {
		return nil, e.fail("related one", sourceType, sourceID, err)
	}
	if row == nil {
		return ir.IRNull{}, nil
	}
	return row.Object, nil
}

// Create inserts a record and returns it in its external shape.
func (e *Engine) Create(typeName string, partial ir.IRObject) (ir.IRObject, error) {
	rec, err := e.merger.Create(typeName, partial)
	if err != nil {
		return nil, e.fail("create", typeName, "", err)
	}
	e.logger.Debug("record created", zap.String("type", typeName), zap.String("id", rec.ID), zap.Int64("rev", rec.Rev))
	return e.translate(typeName, rec)
}

// Update merges partial into the record id names. A non-empty id overrides
// any identifier inside partial.
func (e *Engine) Update(typeName, id string, partial ir.IRObject, forceNulls bool) (ir.IRObject, error) {
	in, err := e.withID(typeName, id, partial)
	if err != nil {
		return nil, e.fail("update", typeName, id, err)
	}
	rec, err := e.merger.Update(typeName, in, forceNulls)
	if err != nil {
		return nil, e.fail("update", typeName, id, err)
	}
	e.logger.Debug("record updated",
		zap.String("type", typeName),
		zap.String("id", rec.ID),
		zap.Bool("force_nulls", forceNulls),
		zap.Int64("rev", rec.Rev),
	)
	return e.translate(typeName, rec)
}

// Upsert updates the record when its identifier exists and creates it
// otherwise. created reports which happened.
func (e *Engine) Upsert(typeName, id string, partial ir.IRObject, forceNulls bool) (obj ir.IRObject, created bool, err error) {
	in, err := e.withID(typeName, id, partial)
	if err != nil {
		return nil, false, e.fail("upsert", typeName, id, err)
	}
	rec, created, err := e.merger.Upsert(typeName, in, forceNulls)
	if err != nil {
		return nil, false, e.fail("upsert", typeName, id, err)
	}
	e.logger.Debug("record upserted",
		zap.String("type", typeName),
		zap.String("id", rec.ID),
		zap.Bool("force_nulls", forceNulls),
		zap.Bool("created", created),
	)
	obj, err = e.translate(typeName, rec)
	return obj, created, err
}

// Delete removes a record and clears every reference to it.
func (e *Engine) Delete(typeName, id string) error {
	if _, err := e.merger.Delete(typeName, id); err != nil {
		return e.fail("delete", typeName, id, err)
	}
	e.logger.Debug("record deleted", zap.String("type", typeName), zap.String("id", id))
	return nil
}

// ETag returns the content hash of a record's external shape.
func (e *Engine) ETag(typeName, id string) (string, error) {
	obj, err := e.Get(typeName, id)
	if err != nil {
		return "", err
	}
	return ir.RecordETag(typeName, obj)
}

func (e *Engine) lookup(typeName, id string) (directory.Kind, *directory.Record, error) {
	t, err := e.dir.MustTable(typeName)
	if err != nil {
		return 0, nil, err
	}
	rec, ok := t.Get(id)
	if !ok {
		return 0, nil, ir.NewNotFound(typeName, id, "record not found")
	}
	return t.Kind, rec, nil
}

func (e *Engine) translate(typeName string, rec *directory.Record) (ir.IRObject, error) {
	k, _ := e.dir.Kind(typeName)
	return e.dir.Translate(k, rec)
}

func (e *Engine) withID(typeName, id string, partial ir.IRObject) (ir.IRObject, error) {
	if id == "" {
		return partial, nil
	}
	t, err := e.dir.MustTable(typeName)
	if err != nil {
		return nil, err
	}
	out := partial.Clone()
	if out == nil {
		out = ir.IRObject{}
	}
	out[t.Key().Name] = ir.IRString(id)
	return out, nil
}

// fail logs a failed operation and returns err unchanged.
func (e *Engine) fail(op, typeName, id string, err error) error {
	e.logger.Warn("operation failed",
		zap.String("op", op),
		zap.String("type", typeName),
		zap.String("id", id),
		zap.String("code", string(ir.CodeOf(err))),
		zap.Error(err),
	)
	return err
}
