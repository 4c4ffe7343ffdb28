package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/config"
	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/engine"
	"github.com/roach88/treasury/internal/testutil"
)

func council() config.Genesis {
	return config.Genesis{
		ID:                "council",
		Authority:         "root",
		Treasury:          "vault",
		GovernanceToken:   "GOV",
		StakeVault:        "stakes",
		Signers:           []string{"A", "B", "C"},
		ApprovalThreshold: 2,
		VoteDuration:      60,
		PassPercentage:    51,
	}
}

func withdrawArgs(id, amount int) map[string]any {
	return map[string]any{
		"id":    id,
		"path":  "multisig",
		"title": "Pay vendor",
		"action": map[string]any{
			"kind":   "withdraw_treasury",
			"params": map[string]any{"amount": amount, "recipient": "vendor"},
		},
	}
}

// withdrawScenario proposes and approves one withdrawal of amount.
func withdrawScenario(amount int) *Scenario {
	return &Scenario{
		Name:        "withdraw",
		Description: "two of three signers withdraw",
		Daos:        []config.Genesis{council()},
		Setup:       []Funding{{Owner: "vault", Asset: "SOL", Amount: 500}},
		Flow: []FlowStep{
			{Invoke: engine.OpPropose, As: "A", Args: withdrawArgs(1, amount)},
			{Invoke: engine.OpApprove, As: "A", Args: map[string]any{"proposal": 1}},
			{Invoke: engine.OpApprove, As: "B", Args: map[string]any{"proposal": 1}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: engine.OpApprove, Count: 2},
		},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(withdrawScenario(200))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	// DaoInitialized, then per step: invocation, completion, events.
	assert.Equal(t, []string{
		"DaoInitialized",
		"ProposalCreated",
		"ProposalApproved",
		"ProposalApproved",
		"ProposalExecuted",
	}, result.Events(-1))
	assert.Equal(t, []string{"ProposalApproved", "ProposalExecuted"}, result.Events(3))

	first := result.Trace[0]
	assert.Equal(t, TypeEvent, first.Type)
	assert.Equal(t, 0, first.Step)
	assert.Equal(t, int64(1), first.Seq)
}

func TestRun_TraceShape(t *testing.T) {
	result, err := Run(withdrawScenario(200))
	require.NoError(t, err)

	inv := result.Trace[1]
	assert.Equal(t, TypeInvocation, inv.Type)
	assert.Equal(t, 1, inv.Step)
	assert.Equal(t, engine.OpPropose, inv.Op)
	assert.Equal(t, "A", inv.Caller)
	assert.Equal(t, "council", inv.DaoID)
	assert.Equal(t, testutil.Genesis, inv.At)

	comp := result.Trace[2]
	assert.Equal(t, TypeCompletion, comp.Type)
	assert.Equal(t, CaseOK, comp.Outcome)

	created := result.Trace[3]
	assert.Equal(t, "ProposalCreated", created.Kind)
	assert.Equal(t, "A", created.Payload["proposer"])
}

func TestRun_WithErrorExpect(t *testing.T) {
	s := withdrawScenario(200)
	s.Flow = append(s.Flow, FlowStep{
		Invoke: engine.OpApprove,
		As:     "C",
		Args:   map[string]any{"proposal": 1},
		Expect: &ExpectClause{Case: "ProposalAlreadyExecuted", Events: []string{}},
	})
	s.Assertions[0].Count = 3

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	// The treasury holds 500, so the final approval cannot execute.
	result, err := Run(withdrawScenario(900))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[2] approve as B: expected case ok, got InsufficientTreasuryBalance")
}

func TestRun_UnexpectedEventsFail(t *testing.T) {
	s := withdrawScenario(200)
	s.Flow[1].Expect = &ExpectClause{Case: CaseOK, Events: []string{"ProposalExecuted"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected events [ProposalExecuted], got [ProposalApproved]")
}

func TestRun_ClockAdvances(t *testing.T) {
	s := withdrawScenario(200)
	s.StartTime = 1_000
	s.Flow[1].Advance = 30
	s.Flow[2].Advance = 12

	result, err := Run(s)
	require.NoError(t, err)

	var at []int64
	for _, ev := range result.Trace {
		if ev.Type == TypeInvocation {
			at = append(at, ev.At)
		}
	}
	assert.Equal(t, []int64{1_000, 1_030, 1_042}, at)
}

func TestRun_Deterministic(t *testing.T) {
	first, err := Run(withdrawScenario(200))
	require.NoError(t, err)
	second, err := Run(withdrawScenario(200))
	require.NoError(t, err)

	a, err := Snapshot(first.Trace)
	require.NoError(t, err)
	b, err := Snapshot(second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	// Re-running the same proposal id would collide if state leaked.
	for i := 0; i < 2; i++ {
		result, err := Run(withdrawScenario(200))
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}

func TestRun_FeeApplied(t *testing.T) {
	s := &Scenario{
		Name:        "fee",
		Description: "claim with fee",
		Fee:         &Fee{Recipient: "sink", Amount: 3},
		Daos:        []config.Genesis{council()},
		Setup:       []Funding{{Owner: "vault", Asset: "SOL", Amount: 100}},
		Flow: []FlowStep{
			{Invoke: engine.OpPropose, As: "A", Args: map[string]any{
				"id":   1,
				"path": "multisig",
				"action": map[string]any{
					"kind": "add_recurring_payment",
					"params": map[string]any{
						"recipient": "dev", "amount": 20, "currency": "SOL", "interval_seconds": 10,
					},
				},
			}},
			{Invoke: engine.OpApprove, As: "A", Args: map[string]any{"proposal": 1}},
			{Invoke: engine.OpApprove, As: "B", Args: map[string]any{"proposal": 1}},
			{Advance: 10, Invoke: engine.OpClaim, As: "dev"},
		},
		Assertions: []Assertion{
			{Type: AssertBalance, Owner: "dev", Asset: "SOL", Amount: 17},
			{Type: AssertBalance, Owner: "sink", Asset: "SOL", Amount: 3},
			{Type: AssertAuditClean, Dao: "council"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadGenesis(t *testing.T) {
	s := withdrawScenario(200)
	s.Daos[0].ApprovalThreshold = 0

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daos[0] council")
	assert.ErrorIs(t, err, dao.ErrInvalidThreshold)
}

func TestRun_AssertionFailuresRecorded(t *testing.T) {
	s := withdrawScenario(200)
	s.Assertions = []Assertion{
		{Type: AssertTraceCount, Action: engine.OpApprove, Count: 5},
		{Type: AssertBalance, Owner: "vendor", Asset: "SOL", Amount: 1},
		{Type: AssertAuditClean, Dao: "council"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "ClaimTooEarly", Outcome(dao.ErrClaimTooEarly.With("now", "1")))
	assert.Equal(t, "ThresholdNotMet", Outcome(fmt.Errorf("wrapped: %w", dao.ErrThresholdNotMet)))
	assert.Equal(t, "UnknownOperation", Outcome(fmt.Errorf("%w %q", engine.ErrUnknownOperation, "mint")))
	assert.Equal(t, "RetriesExhausted", Outcome(&engine.RetriesExhaustedError{Err: errors.New("busy")}))
	assert.Equal(t, "error", Outcome(errors.New("stake args: bad")))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
