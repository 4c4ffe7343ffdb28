package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/dao"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	After int64
	Kind  string // optional - filter to one event kind
}

// TraceEvent is one committed event in the timeline.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	ID        string         `json:"id"`
	DaoID     string         `json:"dao"`
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"`
	At        int64          `json:"at"`
	Payload   map[string]any `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	DaoID    string       `json:"dao,omitempty"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Requests    int            `json:"requests"`
	ByKind      map[string]int `json:"by_kind"`
	LastSeq     int64          `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [dao]",
		Short: "List committed governance events",
		Long: `List committed governance events in seq order.

Without a DAO id every DAO's events are listed. Events sharing a request
id were appended by the same operation.

Examples:
  treasury trace --db ./treasury.db
  treasury trace --db ./treasury.db council --after 12
  treasury trace --db ./treasury.db payroll --kind PaymentClaimed --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			daoID := ""
			if len(args) == 1 {
				daoID = args[0]
			}
			return runTrace(opts, daoID, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind")

	return cmd
}

func runTrace(opts *TraceOptions, daoID string, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.After < 0 {
		return NewExitError(ExitCommandError, "--after must not be negative")
	}

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	events, err := sess.engine.Events(ctx, daoID, opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := buildTrace(daoID, events, opts.Kind)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace converts stored events into the timeline, applying the kind
// filter. Stats describe the filtered timeline.
func buildTrace(daoID string, events []dao.Event, kind string) TraceResult {
	if kind != "" {
		events = lo.Filter(events, func(ev dao.Event, _ int) bool { return string(ev.Kind) == kind })
	}

	result := TraceResult{
		DaoID: daoID,
		Timeline: lo.Map(events, func(ev dao.Event, _ int) TraceEvent {
			return TraceEvent{
				Seq:       ev.Seq,
				ID:        ev.ID,
				DaoID:     ev.DaoID,
				RequestID: ev.RequestID,
				Kind:      string(ev.Kind),
				At:        ev.At,
				Payload:   ev.Payload,
			}
		}),
		Stats: TraceStats{
			TotalEvents: len(events),
			ByKind:      lo.CountValuesBy(events, func(ev dao.Event) string { return string(ev.Kind) }),
			Requests:    len(lo.UniqBy(events, func(ev dao.Event) string { return ev.RequestID })),
		},
	}
	if n := len(events); n > 0 {
		result.Stats.LastSeq = events[n-1].Seq
	}
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace as a table. Verbose adds event and
// request ids.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	header := table.Row{"Seq", "DAO", "Kind", "At", "Payload"}
	if verbose {
		header = append(header, "Request", "Event ID")
	}
	rows := lo.Map(result.Timeline, func(ev TraceEvent, _ int) table.Row {
		row := table.Row{ev.Seq, ev.DaoID, ev.Kind, ev.At, formatPayload(ev.Payload)}
		if verbose {
			row = append(row, ev.RequestID, ev.ID)
		}
		return row
	})
	renderTable(w, "", header, rows, 1, 4)

	fmt.Fprintf(w, "%d event(s) from %d request(s), last seq %d\n",
		result.Stats.TotalEvents, result.Stats.Requests, result.Stats.LastSeq)
	return nil
}
