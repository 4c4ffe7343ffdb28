package harness

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/engine"
	"github.com/roach88/treasury/internal/store"
	"github.com/roach88/treasury/internal/testutil"
)

func inv(step int, op string, args map[string]any) TraceEvent {
	return TraceEvent{Type: TypeInvocation, Step: step, Op: op, Caller: "A", DaoID: "council", Args: args}
}

func evt(step int, seq int64, daoID, kind string) TraceEvent {
	return TraceEvent{Type: TypeEvent, Step: step, Seq: seq, DaoID: daoID, Kind: kind}
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		evt(0, 1, "council", "DaoInitialized"),
		inv(1, "propose", map[string]any{"id": 1, "path": "multisig", "title": "Pay"}),
		{Type: TypeCompletion, Step: 1, Outcome: "ok"},
		evt(1, 2, "council", "ProposalCreated"),
		inv(2, "approve", map[string]any{"proposal": 1}),
		{Type: TypeCompletion, Step: 2, Outcome: "ok"},
		evt(2, 3, "council", "ProposalApproved"),
		inv(3, "approve", map[string]any{"proposal": 1}),
		{Type: TypeCompletion, Step: 3, Outcome: "ok"},
		evt(3, 4, "council", "ProposalApproved"),
		evt(3, 5, "council", "ProposalExecuted"),
		inv(4, "claim", nil),
		{Type: TypeCompletion, Step: 4, Outcome: "ClaimTooEarly"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "propose", Args: map[string]any{"path": "multisig"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: "claim"}))

	err := assertTraceContains(trace, Assertion{Action: "propose", Args: map[string]any{"path": "stake_vote"}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Equal(t, "not found in trace", aerr.Actual)

	assert.Error(t, assertTraceContains(trace, Assertion{Action: "vote"}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"propose", "approve", "claim"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"propose", "claim"}}), "gaps are allowed")

	err := assertTraceOrder(trace, Assertion{Actions: []string{"claim", "propose"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []string{"propose", "vote"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing operation: vote")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "approve", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: "vote", Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: "approve", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertEventCount(t *testing.T) {
	trace := append(sampleTrace(), evt(5, 6, "guild", "ProposalApproved"))

	assert.NoError(t, assertEventCount(trace, Assertion{Event: "ProposalApproved", Count: 3}))
	assert.NoError(t, assertEventCount(trace, Assertion{Event: "ProposalApproved", Dao: "council", Count: 2}))
	assert.NoError(t, assertEventCount(trace, Assertion{Event: "VoteCast", Count: 0}))

	err := assertEventCount(trace, Assertion{Event: "ProposalExecuted", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 events")
}

func TestAssertEventOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertEventOrder(trace, Assertion{Events: []string{"DaoInitialized", "ProposalApproved", "ProposalExecuted"}}))
	assert.NoError(t, assertEventOrder(trace, Assertion{Events: []string{"ProposalApproved", "ProposalApproved"}}), "repeats are matched in turn")

	err := assertEventOrder(trace, Assertion{Events: []string{"ProposalExecuted", "ProposalCreated"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ProposalCreated after [ProposalExecuted]")

	err = assertEventOrder(trace, Assertion{Dao: "guild", Events: []string{"DaoInitialized"}})
	assert.Error(t, err)
}

func TestMatchArgs_SubsetSemantics(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected map[string]any
		want     bool
	}{
		{"exact_match", map[string]any{"key": "value"}, map[string]any{"key": "value"}, true},
		{"subset_match", map[string]any{"key1": "value1", "key2": "value2"}, map[string]any{"key1": "value1"}, true},
		{"missing_key", map[string]any{"key1": "value1"}, map[string]any{"key1": "value1", "key2": "value2"}, false},
		{"value_mismatch", map[string]any{"key": "actual"}, map[string]any{"key": "expected"}, false},
		{"empty_expected", map[string]any{"key": "value"}, map[string]any{}, true},
		{"nil_expected", map[string]any{"key": "value"}, nil, true},
		{
			"nested_match",
			map[string]any{"action": map[string]any{"kind": "withdraw_treasury"}},
			map[string]any{"action": map[string]any{"kind": "withdraw_treasury"}},
			true,
		},
		{"non_map_actual", "not a map", map[string]any{"key": "value"}, false},
		{"int_match", map[string]any{"proposal": 42}, map[string]any{"proposal": 42}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchArgs(tt.actual, tt.expected))
		})
	}
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)

	sql, args, err = buildWhereClause(map[string]any{"owner": "dev", "asset": "SOL"})
	require.NoError(t, err)
	assert.Equal(t, "asset = ? AND owner = ?", sql)
	assert.Equal(t, []any{"SOL", "dev"}, args)

	// Values are always bound, never interpolated.
	sql, args, err = buildWhereClause(map[string]any{"owner": "x'; DROP TABLE daos; --"})
	require.NoError(t, err)
	assert.Equal(t, "owner = ?", sql)
	assert.Equal(t, []any{"x'; DROP TABLE daos; --"}, args)

	_, _, err = buildWhereClause(map[string]any{"owner; DROP": "x"})
	assert.ErrorContains(t, err, "invalid column name")
}

func TestToSQLValue(t *testing.T) {
	assert.Equal(t, "s", toSQLValue("s"))
	assert.Equal(t, 3, toSQLValue(3))
	assert.Equal(t, int64(7), toSQLValue(uint64(7)))
	assert.Equal(t, true, toSQLValue(true))
	assert.Equal(t, "[1 2]", toSQLValue([]any{1, 2}))
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "asset=SOL AND owner=dev", formatWhereClause(map[string]any{"owner": "dev", "asset": "SOL"}))
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", "a"))
	assert.True(t, stateValuesEqual("a", []byte("a")))
	assert.False(t, stateValuesEqual("a", int64(1)))

	assert.True(t, stateValuesEqual(10, int64(10)))
	assert.True(t, stateValuesEqual(int64(10), int64(10)))
	assert.True(t, stateValuesEqual(uint64(10), int64(10)))
	assert.True(t, stateValuesEqual(uint64(1<<63), int64(math.MinInt64)), "stored by bit pattern")
	assert.True(t, stateValuesEqual(uint64(1<<64-1), int64(-1)))
	assert.Equal(t, int64(math.MinInt64), toSQLValue(uint64(1<<63)))
	assert.False(t, stateValuesEqual(10, int64(11)))

	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(false, int64(0)))
	assert.False(t, stateValuesEqual(true, int64(0)))

	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual(nil, int64(0)))
	assert.False(t, stateValuesEqual(0, nil))
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "3 occurrences of approve",
		Actual:   "2 occurrences",
		Trace:    sampleTrace()[:3],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 3 occurrences of approve")
	assert.Contains(t, msg, "Actual: 2 occurrences")
	assert.Contains(t, msg, "#1 DaoInitialized")
	assert.Contains(t, msg, "[1] propose as A")
	assert.Contains(t, msg, "-> ok")
}

// funded returns a store and engine whose ledger holds a few balances.
func funded(t *testing.T) (context.Context, *store.Store, *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	st := testutil.OpenStore(t)
	eng, err := engine.New(ctx, st, custody.NewLedger(st),
		engine.WithClock(testutil.NewManualClock(testutil.Genesis)),
		engine.WithLogger(engine.DiscardLogger()))
	require.NoError(t, err)

	require.NoError(t, st.Fund(ctx, "dev", "SOL", 10))
	require.NoError(t, st.Fund(ctx, "dev", "GOV", 3))
	require.NoError(t, st.Fund(ctx, "ops", "SOL", 10))
	return ctx, st, eng
}

func TestAssertFinalState(t *testing.T) {
	ctx, st, _ := funded(t)

	pass := Assertion{
		Table:  "accounts",
		Where:  map[string]any{"owner": "dev", "asset": "SOL"},
		Expect: map[string]any{"balance": 10},
	}
	assert.NoError(t, assertFinalState(ctx, st, pass))

	tests := []struct {
		name   string
		a      Assertion
		actual string
	}{
		{"row not found", Assertion{
			Table: "accounts", Where: map[string]any{"owner": "nobody"}, Expect: map[string]any{"balance": 0},
		}, "row not found"},
		{"ambiguous", Assertion{
			Table: "accounts", Where: map[string]any{"owner": "dev"}, Expect: map[string]any{"balance": 10},
		}, "multiple rows matched"},
		{"value mismatch", Assertion{
			Table: "accounts", Where: map[string]any{"owner": "ops"}, Expect: map[string]any{"balance": 11},
		}, `field "balance" = 10`},
		{"missing column", Assertion{
			Table: "accounts", Where: map[string]any{"owner": "ops"}, Expect: map[string]any{"frozen": 0},
		}, "not present in result columns"},
		{"unknown table", Assertion{
			Table: "ledgers", Expect: map[string]any{"balance": 0},
		}, "query error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.a)
			var aerr *AssertionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, AssertFinalState, aerr.Type)
			assert.Contains(t, aerr.Actual, tt.actual)
		})
	}

	err := assertFinalState(ctx, st, Assertion{Table: "accounts; DROP", Expect: map[string]any{"x": 1}})
	assert.ErrorContains(t, err, "invalid table name")
}

func TestAssertBalance(t *testing.T) {
	ctx, _, eng := funded(t)

	assert.NoError(t, assertBalance(ctx, eng, Assertion{Owner: "dev", Asset: "GOV", Amount: 3}))
	assert.NoError(t, assertBalance(ctx, eng, Assertion{Owner: "nobody", Asset: "SOL", Amount: 0}))

	err := assertBalance(ctx, eng, Assertion{Owner: "dev", Asset: "SOL", Amount: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev holds 4 SOL")
	assert.Contains(t, err.Error(), "Actual: 10 SOL")
}

func TestAssertAuditClean(t *testing.T) {
	ctx, _, eng := funded(t)
	_, err := eng.InitializeDao(ctx, testutil.DaoConfig("council", 1, "A"))
	require.NoError(t, err)

	assert.NoError(t, assertAuditClean(ctx, eng, Assertion{Dao: "council"}))
	assert.Error(t, assertAuditClean(ctx, eng, Assertion{Dao: "missing"}))
}

func TestEvaluateAssertions(t *testing.T) {
	ctx, st, eng := funded(t)
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "approve", Count: 2},
		{Type: AssertEventCount, Event: "ProposalExecuted", Count: 1},
		{Type: AssertBalance, Owner: "ops", Asset: "SOL", Amount: 10},
		{Type: AssertFinalState, Table: "accounts", Where: map[string]any{"owner": "ops"}, Expect: map[string]any{"balance": 10}},
	}, &AssertionContext{Ctx: ctx, Store: st, Engine: eng})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "approve", Count: 9},
		{Type: "eventually"},
		{Type: AssertFinalState, Table: "accounts", Expect: map[string]any{"balance": 1}},
		{Type: AssertBalance, Owner: "ops", Asset: "SOL"},
	}, nil)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[1], `unknown assertion type "eventually"`)
	assert.Contains(t, errs[2], "final_state requires database context")
	assert.Contains(t, errs[3], "balance requires engine context")
}
