package cli

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// FundResult reports an account balance after funding.
type FundResult struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund <owner> <asset> <amount>",
		Short: "Credit an account in the local ledger",
		Long: `Credit an account in the local ledger.

Funding happens outside governance and appends no event. Use it to seed
treasuries and participant token balances.

Example:
  treasury fund --db ./treasury.db council-treasury SOL 1000`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	// Flags end at the first positional so "-5" reaches parseAmount.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runFund(opts *RootOptions, owner, asset, rawAmount string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	amount, err := parseAmount(rawAmount)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid amount", err)
	}

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.store.Fund(ctx, owner, asset, amount); err != nil {
		return WrapExitError(ExitCommandError, "failed to fund account", err)
	}
	balance, err := sess.store.AccountBalance(ctx, owner, asset)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read balance", err)
	}

	result := FundResult{Owner: owner, Asset: asset, Balance: balance}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %s now holds %d %s", owner, balance, asset))
}

// parseAmount accepts a positive decimal that fits in 64 bits.
func parseAmount(s string) (uint64, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("amount %s exceeds 64 bits", s)
	}
	if v.IsZero() {
		return 0, fmt.Errorf("amount must be positive")
	}
	return v.Uint64(), nil
}
