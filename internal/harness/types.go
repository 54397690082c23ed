package harness

// Outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"` // OutcomeOK or an error code
	Result  any    `json:"result,omitempty"`
}

// Label names the step for trace assertions: "op Type".
func (e TraceEvent) Label() string {
	return e.Op + " " + e.Type
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps, setup included, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation.
	Errors []string `json:"errors,omitempty"`

	// TraceID is the id the engine stamped on the run.
	TraceID string `json:"trace_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
