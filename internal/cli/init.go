package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/config"
	"github.com/roach88/treasury/internal/dao"
)

// InitResult describes a created DAO.
type InitResult struct {
	ID                string   `json:"id"`
	Signers           []string `json:"signers"`
	ApprovalThreshold uint8    `json:"approval_threshold"`
	CreatedAt         int64    `json:"created_at"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <genesis.yaml>",
		Short: "Create a DAO from a genesis file",
		Long: `Create a DAO from a genesis file.

The file is validated against the genesis schema first. Creating a DAO
whose id already exists fails and leaves the database unchanged.

Example:
  treasury init --db ./treasury.db ./council.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	genesis, err := config.LoadGenesis(path)
	if err != nil {
		var gerr *config.GenesisError
		if errors.As(err, &gerr) {
			_ = formatter.Error(ErrCodeInvalidGenesis, gerr.Error(), nil)
			return WrapExitError(ExitFailure, "invalid genesis", err)
		}
		return WrapExitError(ExitCommandError, "failed to load genesis", err)
	}

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	cfg, err := sess.engine.InitializeDao(ctx, genesis.Config())
	if err != nil {
		return reportRejection(formatter, err)
	}
	formatter.VerboseLog("Created DAO %s at %d", cfg.ID, cfg.CreatedAt)

	result := InitResult{
		ID:                cfg.ID,
		Signers:           identityStrings(cfg.Signers),
		ApprovalThreshold: cfg.ApprovalThreshold,
		CreatedAt:         cfg.CreatedAt,
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ Created DAO %s (%d of %d signers)",
		result.ID, result.ApprovalThreshold, len(result.Signers)))
}

// reportRejection prints err and maps it to an exit code. Governance
// rejections exit 1 with their own code; anything else is a command error.
func reportRejection(formatter *OutputFormatter, err error) error {
	var derr *dao.Error
	if errors.As(err, &derr) {
		var details any
		if len(derr.Details) > 0 {
			details = derr.Details
		}
		_ = formatter.Error(string(derr.Code), derr.Message, details)
		return WrapExitError(ExitFailure, "operation rejected", err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "operation failed", err)
}

func identityStrings(ids []dao.Identity) []string {
	return lo.Map(ids, func(id dao.Identity, _ int) string { return string(id) })
}
