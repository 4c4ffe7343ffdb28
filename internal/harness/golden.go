package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/treasury/internal/dao"
)

// GoldenDir is where golden traces live, relative to the test's package.
const GoldenDir = "testdata/golden"

// canonicalEntry converts a trace entry to a map for canonical JSON.
// Empty fields are omitted so each entry type keeps a stable shape.
func canonicalEntry(ev TraceEvent) map[string]any {
	m := map[string]any{
		"type": ev.Type,
		"step": ev.Step,
	}
	if ev.Op != "" {
		m["op"] = ev.Op
	}
	if ev.Caller != "" {
		m["as"] = ev.Caller
	}
	if ev.DaoID != "" {
		m["dao"] = ev.DaoID
	}
	if len(ev.Args) > 0 {
		m["args"] = ev.Args
	}
	if ev.At != 0 {
		m["at"] = ev.At
	}
	if ev.Outcome != "" {
		m["outcome"] = ev.Outcome
	}
	if ev.Seq != 0 {
		m["seq"] = ev.Seq
	}
	if ev.Kind != "" {
		m["kind"] = ev.Kind
	}
	if ev.Payload != nil {
		m["payload"] = ev.Payload
	}
	return m
}

// Snapshot renders a trace as canonical JSON, one entry per line.
// Line-oriented output keeps golden diffs readable.
func Snapshot(trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	for i, ev := range trace {
		line, err := dao.MarshalCanonical(canonicalEntry(ev))
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
