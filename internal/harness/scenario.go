package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Builtin names the embedded insurance domain for Schema and Seed.
const Builtin = "insurance"

// Scenario is a sequence of engine operations with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE file or directory. Empty or "insurance" selects the
	// embedded insurance domain with its computed fields.
	Schema string `yaml:"schema,omitempty"`

	// Seed is a seed YAML file loaded before setup, or "insurance" for the
	// embedded sample records.
	Seed string `yaml:"seed,omitempty"`

	// Today fixes the calendar date (YYYY-MM-DD). Defaults to DefaultToday.
	Today string `yaml:"today,omitempty"`

	// TraceID is the fixed trace id. Defaults to "test-trace-default".
	TraceID string `yaml:"trace_id,omitempty"`

	// Setup steps run before Steps. They must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the operations under test.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultToday is the calendar date used when a scenario names none.
const DefaultToday = "2024-01-01"

// Step is one engine operation.
type Step struct {
	Op      string         `yaml:"op"`
	Type    string         `yaml:"type"`
	ID      string         `yaml:"id,omitempty"`
	Target  string         `yaml:"target,omitempty"`
	Key     *KeyStep       `yaml:"key,omitempty"`
	Filter  string         `yaml:"filter,omitempty"`
	OrderBy string         `yaml:"orderby,omitempty"`
	Skip    *int           `yaml:"skip,omitempty"`
	Top     *int           `yaml:"top,omitempty"`
	Count   bool           `yaml:"count,omitempty"`
	Select  string         `yaml:"select,omitempty"`
	Expand  string         `yaml:"expand,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`

	// Method is PATCH (default) or PUT for update and upsert.
	Method string `yaml:"method,omitempty"`

	// Expect validates the step. Nil means the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// KeyStep picks one record of a related collection.
type KeyStep struct {
	Name  string `yaml:"name,omitempty"`
	Value string `yaml:"value"`
}

// ExpectClause specifies the expected outcome of a step. Unset fields are
// not checked.
type ExpectClause struct {
	// Error is the expected error code, e.g. NOT_FOUND. When set the step
	// must fail with exactly this code.
	Error string `yaml:"error,omitempty"`

	// Count is the $count value when requested, otherwise the number of
	// rows returned.
	Count *int `yaml:"count,omitempty"`

	// IDs are the returned record identifiers, in order.
	IDs []string `yaml:"ids,omitempty"`

	// Record is a subset of the returned record.
	Record map[string]any `yaml:"record,omitempty"`

	// Created is the upsert outcome.
	Created *bool `yaml:"created,omitempty"`

	// Null expects related_one to find nothing.
	Null bool `yaml:"null,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is a step op or label ("create Claim") for trace assertions.
	Op string `yaml:"op,omitempty"`

	// Ops is the expected order for trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// RecordType and ID select a record for final_state and trace_contains.
	RecordType string `yaml:"record_type,omitempty"`
	ID         string `yaml:"id,omitempty"`

	// Expect is a subset of the record for final_state.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is used by trace_count and record_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRecordCount   = "record_count"
)

// Step operation constants.
const (
	OpQuery      = "query"
	OpGet        = "get"
	OpRelated    = "related"
	OpRelatedOne = "related_one"
	OpCreate     = "create"
	OpUpdate     = "update"
	OpUpsert     = "upsert"
	OpDelete     = "delete"
)

var knownOps = map[string]bool{
	OpQuery: true, OpGet: true, OpRelated: true, OpRelatedOne: true,
	OpCreate: true, OpUpdate: true, OpUpsert: true, OpDelete: true,
}

// LoadScenario reads and parses a scenario YAML file. Schema and seed paths
// are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema and seed paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	scenario.Schema = resolve(scenario.Schema, basePath)
	scenario.Seed = resolve(scenario.Seed, basePath)

	if err := validatePaths(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario document. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(path, base string) string {
	if path == "" || path == Builtin || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

func validatePaths(s *Scenario) error {
	for _, p := range []string{s.Schema, s.Seed} {
		if p == "" || p == Builtin {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}
	return nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Seed == Builtin && s.Schema != "" && s.Schema != Builtin {
		return fmt.Errorf("seed %q requires the %s schema", Builtin, Builtin)
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Type == "" {
		return fmt.Errorf("type is required")
	}

	switch step.Op {
	case OpGet, OpDelete:
		if step.ID == "" {
			return fmt.Errorf("id is required for %s", step.Op)
		}
	case OpRelated, OpRelatedOne:
		if step.ID == "" || step.Target == "" {
			return fmt.Errorf("id and target are required for %s", step.Op)
		}
	case OpCreate, OpUpdate, OpUpsert:
		if step.Payload == nil {
			return fmt.Errorf("payload is required for %s (use {} for none)", step.Op)
		}
		if step.Op == OpUpdate && step.ID == "" {
			return fmt.Errorf("id is required for update")
		}
	}
	if step.Key != nil && step.Op != OpRelatedOne {
		return fmt.Errorf("key is only valid for %s", OpRelatedOne)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.RecordType == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: record_type and id are required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRecordCount:
		if a.RecordType == "" {
			return fmt.Errorf("assertions[%d]: record_type is required for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(path), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
