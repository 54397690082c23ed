package testutil

// FixedTraceGenerator returns the same trace id every time.
//
// Golden traces compare byte for byte, so every step of a scenario carries
// the same id. Unlike engine.FixedGenerator, which hands out a sequence,
// this generator never runs out.
//
// Thread-safety: FixedTraceGenerator is stateless and safe for concurrent use.
type FixedTraceGenerator struct {
	token string
}

// NewFixedTraceGenerator creates a generator for token. The scenario YAML
// usually supplies it:
//
//	trace_id: "trace-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate returns "test-trace-default".
func NewFixedTraceGenerator(token string) *FixedTraceGenerator {
	if token == "" {
		token = "test-trace-default"
	}
	return &FixedTraceGenerator{token: token}
}

// Generate returns the fixed trace id.
// Implements engine.TraceIDGenerator.
func (g *FixedTraceGenerator) Generate() string {
	return g.token
}
