package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/engine"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args   string
	Caller string
	Dao    string
}

// InvokeResult is the outcome of one operation.
type InvokeResult struct {
	Op     string      `json:"op"`
	Result interface{} `json:"result"`
	Events []string    `json:"events"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <op>",
		Short: "Run one governance operation",
		Long: fmt.Sprintf(`Run one governance operation as the given caller.

Operations: %s

A rejected operation exits 1 and prints its code, e.g. ThresholdNotMet.
Nothing is written when an operation is rejected.

Examples:
  treasury invoke stake --dao guild --as alice --args '{"amount":70}'
  treasury invoke propose --dao council --as A --args '{"id":1,"path":"multisig","action":{"kind":"withdraw_treasury","params":{"amount":400,"recipient":"vendor"}}}'
  treasury invoke approve --dao council --as B --args '{"proposal":1}'
  treasury invoke claim --dao payroll --as dev`, strings.Join(engine.Ops, ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "operation arguments as JSON")
	cmd.Flags().StringVar(&opts.Caller, "as", "", "acting identity (required)")
	cmd.Flags().StringVar(&opts.Dao, "dao", "", "DAO id (required)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("dao")

	return cmd
}

func invokeAction(opts *InvokeOptions, op string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	args, err := decodeInvokeArgs(opts.Args)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	before, err := sess.store.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	formatter.VerboseLog("Invoking %s as %s on %s", op, opts.Caller, opts.Dao)
	out, err := sess.engine.Dispatch(ctx, engine.Invocation{
		Op:     op,
		Caller: dao.Identity(opts.Caller),
		DaoID:  opts.Dao,
		Args:   args,
	})
	if err != nil {
		return reportRejection(formatter, err)
	}

	events, err := sess.engine.Events(ctx, opts.Dao, before)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := InvokeResult{Op: op, Result: out, Events: make([]string, 0, len(events))}
	var requestID string
	for _, ev := range events {
		result.Events = append(result.Events, string(ev.Kind))
		requestID = ev.RequestID
	}

	if opts.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      result,
			RequestID: requestID,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s ok\n", op)
	for _, ev := range events {
		fmt.Fprintf(w, "  #%d %s %s\n", ev.Seq, ev.Kind, formatPayload(ev.Payload))
	}
	return nil
}

// decodeInvokeArgs parses raw as a JSON object, keeping numbers exact.
func decodeInvokeArgs(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid --args JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid --args JSON: trailing data")
	}
	return args, nil
}
