package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/engine"
	"github.com/roach88/treasury/internal/store"
	"github.com/roach88/treasury/internal/testutil"
)

// Harness drives one scenario against a real engine.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	clock   *testutil.ManualClock
	logger  *slog.Logger
	lastSeq int64
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a ledger
// custodian, a manual clock and sequential request ids, so two runs of
// the same scenario produce identical traces.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(context.Background(), scenario, engine.DiscardLogger())
}

// RunWithLogger is Run with engine and harness logs sent to logger.
//
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Initialize every declared DAO
// 3. Credit setup balances
// 4. Dispatch flow steps, checking expect clauses
// 5. Evaluate assertions
//
// The returned error reports harness failures (bad genesis, storage);
// scenario failures are recorded in Result.Errors.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	start := scenario.StartTime
	if start == 0 {
		start = testutil.Genesis
	}
	clock := testutil.NewManualClock(start)

	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithRequestIDs(engine.NewSequentialGenerator("req")),
		engine.WithLogger(logger),
	}
	if scenario.Fee != nil {
		opts = append(opts, engine.WithFees(engine.FeeSchedule{
			Recipient: dao.Identity(scenario.Fee.Recipient),
			Amount:    scenario.Fee.Amount,
		}))
	}
	eng, err := engine.New(ctx, st, custody.NewLedger(st), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Stop()

	h := &Harness{
		store:  st,
		engine: eng,
		clock:  clock,
		logger: logger,
	}

	result := NewResult()
	if err := h.initialize(ctx, scenario, result); err != nil {
		return nil, err
	}
	if err := h.executeFlow(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Store:  st,
		Engine: eng,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// initialize creates the declared DAOs and credits setup balances.
// Initialization events are traced under step 0.
func (h *Harness) initialize(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, g := range scenario.Daos {
		if _, err := h.engine.InitializeDao(ctx, g.Config()); err != nil {
			return fmt.Errorf("daos[%d] %s: %w", i, g.ID, err)
		}
	}
	if err := h.collectEvents(ctx, 0, result); err != nil {
		return err
	}

	for i, f := range scenario.Setup {
		if err := h.store.Fund(ctx, f.Owner, f.Asset, f.Amount); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Debug("setup funded", "owner", f.Owner, "asset", f.Asset, "amount", f.Amount)
	}
	return nil
}

// executeFlow dispatches every step and checks its expect clause. A
// mismatch is recorded and the flow continues, so one run reports every
// divergence.
func (h *Harness) executeFlow(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, step := range scenario.Flow {
		n := i + 1
		if step.Advance > 0 {
			h.clock.Advance(step.Advance)
		}

		daoID := step.Dao
		if daoID == "" {
			daoID = scenario.Daos[0].ID
		}

		result.AddInvocationTrace(n, step.Invoke, step.As, daoID, step.Args, h.clock.Now())
		_, err := h.engine.Dispatch(ctx, engine.Invocation{
			Op:     step.Invoke,
			Caller: dao.Identity(step.As),
			DaoID:  daoID,
			Args:   step.Args,
		})
		outcome := Outcome(err)
		result.AddCompletionTrace(n, outcome)

		if err := h.collectEvents(ctx, n, result); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		expected := CaseOK
		if step.Expect != nil {
			expected = step.Expect.Case
		}
		if outcome != expected {
			msg := fmt.Sprintf("flow[%d] %s as %s: expected case %s, got %s", i, step.Invoke, step.As, expected, outcome)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}
		if step.Expect != nil && step.Expect.Events != nil {
			got := result.Events(n)
			if !slices.Equal(got, step.Expect.Events) {
				result.AddError(fmt.Sprintf("flow[%d] %s as %s: expected events %v, got %v",
					i, step.Invoke, step.As, step.Expect.Events, got))
			}
		}

		h.logger.Debug("flow step completed",
			"step", n,
			"op", step.Invoke,
			"as", step.As,
			"dao", daoID,
			"outcome", outcome,
		)
	}
	return nil
}

// collectEvents appends every event committed since the last call.
func (h *Harness) collectEvents(ctx context.Context, step int, result *Result) error {
	events, err := h.engine.Events(ctx, "", h.lastSeq)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	for _, ev := range events {
		result.AddEventTrace(step, ev.DaoID, ev.Seq, string(ev.Kind), ev.Payload)
		h.lastSeq = ev.Seq
	}
	return nil
}

// Outcome names the result of a dispatched operation: "ok", the
// governance error code, or a coarse label for errors without one.
func Outcome(err error) string {
	if err == nil {
		return CaseOK
	}
	if code := dao.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, engine.ErrUnknownOperation):
		return "UnknownOperation"
	case engine.IsRetriesExhausted(err):
		return "RetriesExhausted"
	}
	return "error"
}
