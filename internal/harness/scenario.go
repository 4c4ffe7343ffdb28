package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/treasury/internal/config"
	"github.com/roach88/treasury/internal/engine"
)

// Scenario is a scripted run against a fresh engine: DAOs are created
// from genesis documents, accounts are funded, then Flow is dispatched
// step by step with the clock under scenario control.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartTime is the clock reading before the first step. Zero means
	// testutil.Genesis.
	StartTime int64 `yaml:"start_time,omitempty"`

	// Fee enables the protocol fee on claims.
	Fee *Fee `yaml:"fee,omitempty"`

	// Daos are initialized in order before Setup.
	Daos []config.Genesis `yaml:"daos"`

	// Setup credits accounts in the ledger before the flow.
	Setup []Funding `yaml:"setup,omitempty"`

	// Flow is dispatched in order. A step without expect must succeed.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Fee is the protocol fee charged to the claimant on each claim.
type Fee struct {
	Recipient string `yaml:"recipient"`
	Amount    uint64 `yaml:"amount"`
}

// Funding credits Amount of Asset to Owner.
type Funding struct {
	Owner  string `yaml:"owner"`
	Asset  string `yaml:"asset"`
	Amount uint64 `yaml:"amount"`
}

// FlowStep is one dispatched operation.
type FlowStep struct {
	// Advance moves the clock forward by this many seconds first.
	Advance int64 `yaml:"advance,omitempty"`

	// Invoke is the operation name, e.g. "approve".
	Invoke string `yaml:"invoke"`

	// As is the acting identity.
	As string `yaml:"as"`

	// Dao is the target DAO id. May be omitted when the scenario
	// declares exactly one DAO.
	Dao string `yaml:"dao,omitempty"`

	// Args are the operation arguments, decoded strictly.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect is the expected outcome. Nil means "ok".
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "ok" or an error code such as "ThresholdNotMet".
	Case string `yaml:"case"`

	// Events lists the event kinds the step must emit, in order. Nil
	// skips the check; an empty list requires no events.
	Events []string `yaml:"events,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an invocation of Action with Args (subset)
	// - "trace_order": invocations of Actions appear in order
	// - "trace_count": Action was invoked exactly Count times
	// - "event_count": Event was emitted exactly Count times
	// - "event_order": Events appear in the log in order
	// - "final_state": one row of Table matching Where has Expect
	// - "balance": Owner holds exactly Amount of Asset
	// - "audit_clean": Dao passes the history audit
	Type string `yaml:"type"`

	Action  string         `yaml:"action,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Actions []string       `yaml:"actions,omitempty"`
	Count   int            `yaml:"count,omitempty"`

	Event  string   `yaml:"event,omitempty"`
	Events []string `yaml:"events,omitempty"`

	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	Owner  string `yaml:"owner,omitempty"`
	Asset  string `yaml:"asset,omitempty"`
	Amount uint64 `yaml:"amount,omitempty"`

	Dao string `yaml:"dao,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertFinalState    = "final_state"
	AssertBalance       = "balance"
	AssertAuditClean    = "audit_clean"
)

// CaseOK is the expected case of a successful step.
const CaseOK = "ok"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Daos) == 0 {
		return fmt.Errorf("daos list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Fee != nil && s.Fee.Recipient == "" {
		return fmt.Errorf("fee: recipient is required")
	}

	daos := make(map[string]bool, len(s.Daos))
	for i, g := range s.Daos {
		if g.ID == "" {
			return fmt.Errorf("daos[%d]: id is required", i)
		}
		if daos[g.ID] {
			return fmt.Errorf("daos[%d]: duplicate id %q", i, g.ID)
		}
		daos[g.ID] = true
	}

	for i, f := range s.Setup {
		if f.Owner == "" || f.Asset == "" {
			return fmt.Errorf("setup[%d]: owner and asset are required", i)
		}
		if f.Amount == 0 {
			return fmt.Errorf("setup[%d]: amount must be positive", i)
		}
	}

	known := make(map[string]bool, len(engine.Ops))
	for _, op := range engine.Ops {
		known[op] = true
	}
	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if !known[step.Invoke] {
			return fmt.Errorf("flow[%d]: unknown operation %q", i, step.Invoke)
		}
		if step.As == "" {
			return fmt.Errorf("flow[%d]: as is required", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("flow[%d]: advance must not be negative", i)
		}
		if step.Dao == "" && len(s.Daos) > 1 {
			return fmt.Errorf("flow[%d]: dao is required when the scenario declares several", i)
		}
		if step.Dao != "" && !daos[step.Dao] {
			return fmt.Errorf("flow[%d]: dao %q is not declared", i, step.Dao)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertBalance:
		if a.Owner == "" || a.Asset == "" {
			return fmt.Errorf("assertions[%d]: owner and asset are required for balance", index)
		}
	case AssertAuditClean:
		if a.Dao == "" {
			return fmt.Errorf("assertions[%d]: dao is required for audit_clean", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
