package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/engine"
)

// AuditReport is the audit outcome for one DAO.
type AuditReport struct {
	DaoID      string   `json:"dao"`
	Clean      bool     `json:"clean"`
	Violations []string `json:"violations,omitempty"`
}

// AuditResult holds the reports for every audited DAO.
type AuditResult struct {
	Reports []AuditReport `json:"reports"`
	Clean   bool          `json:"clean"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [dao...]",
		Short: "Check stored state against governance invariants",
		Long: `Re-derive each DAO's invariants from the database and the event log.

Checks include: stake records summing to the DAO total, tallies matching
recorded votes, every executed proposal having exactly one execution
event, and event ids matching their contents. Without arguments every
DAO is audited.

Exit codes:
  0 - No violations
  1 - One or more violations, or an unknown DAO
  2 - Command error (database not found, bad settings, etc.)

Example:
  treasury audit --db ./treasury.db
  treasury audit --db ./treasury.db council --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runAudit(opts *RootOptions, daoIDs []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if len(daoIDs) == 0 {
		daos, err := sess.engine.Daos(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list DAOs", err)
		}
		for _, d := range daos {
			daoIDs = append(daoIDs, d.ID)
		}
	}

	result := AuditResult{Clean: true, Reports: make([]AuditReport, 0, len(daoIDs))}
	for _, id := range daoIDs {
		formatter.VerboseLog("Auditing %s", id)
		report := AuditReport{DaoID: id, Clean: true}

		err := sess.engine.Audit(ctx, id)
		var auditErr *engine.AuditError
		switch {
		case err == nil:
		case errors.As(err, &auditErr):
			report.Clean = false
			report.Violations = auditErr.Violations
			result.Clean = false
		default:
			return reportRejection(formatter, err)
		}
		result.Reports = append(result.Reports, report)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Clean {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeAuditFailed, Message: "invariant violations found"}
		}
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(response); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if len(result.Reports) == 0 {
			fmt.Fprintln(w, "No DAOs found.")
		}
		for _, r := range result.Reports {
			if r.Clean {
				fmt.Fprintf(w, "✓ %s\n", r.DaoID)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", r.DaoID)
			for _, v := range r.Violations {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
	}

	if !result.Clean {
		return NewExitError(ExitFailure, "invariant violations found")
	}
	return nil
}
