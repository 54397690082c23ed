package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/recordgraph/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	TraceID      string       `json:"trace_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// SnapshotOf builds the snapshot of a finished run.
func SnapshotOf(scenarioName string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenarioName,
		TraceID:      result.TraceID,
		Trace:        result.Trace,
	}
}

// Canonical renders the snapshot as canonical JSON, the golden file format.
func (s TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// toCanonicalMap converts the snapshot to plain maps, since
// ir.MarshalCanonical only handles IR types and primitives.
func (s TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"op":      event.Op,
			"type":    event.Type,
			"outcome": event.Outcome,
		}
		if event.ID != "" {
			eventMap["id"] = event.ID
		}
		if event.Target != "" {
			eventMap["target"] = event.Target
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.TraceID != "" {
		result["trace_id"] = s.TraceID
	}
	return result
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotOf(scenarioName, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
