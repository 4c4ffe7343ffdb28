package harness

// Trace entry types.
const (
	TypeInvocation = "invocation"
	TypeCompletion = "completion"
	TypeEvent      = "event"
)

// TraceEvent is one entry of a scenario trace: an invocation, its
// completion, or a lifecycle event the engine appended.
type TraceEvent struct {
	Type string `json:"type"`

	// Step is the 1-based flow index. Events from DAO initialization
	// carry step 0.
	Step int `json:"step"`

	// Invocation fields.
	Op     string         `json:"op,omitempty"`
	Caller string         `json:"as,omitempty"`
	DaoID  string         `json:"dao,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	At     int64          `json:"at,omitempty"`

	// Outcome is "ok" or the error code of a completion.
	Outcome string `json:"outcome,omitempty"`

	// Event fields.
	Seq     int64          `json:"seq,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains invocations, completions and events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
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

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(step int, op, caller, daoID string, args map[string]any, at int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   TypeInvocation,
		Step:   step,
		Op:     op,
		Caller: caller,
		DaoID:  daoID,
		Args:   args,
		At:     at,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(step int, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    TypeCompletion,
		Step:    step,
		Outcome: outcome,
	})
}

// AddEventTrace adds an appended lifecycle event to the trace.
func (r *Result) AddEventTrace(step int, daoID string, seq int64, kind string, payload map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    TypeEvent,
		Step:    step,
		DaoID:   daoID,
		Seq:     seq,
		Kind:    kind,
		Payload: payload,
	})
}

// Events returns the kinds of the event entries, optionally limited to
// one step (step < 0 means all).
func (r *Result) Events(step int) []string {
	var kinds []string
	for _, ev := range r.Trace {
		if ev.Type == TypeEvent && (step < 0 || ev.Step == step) {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}
