package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/dao"
)

// DaoView is the displayed form of a DAO configuration.
type DaoView struct {
	ID                    string   `json:"id"`
	Authority             string   `json:"authority"`
	Treasury              string   `json:"treasury"`
	GovernanceToken       string   `json:"governance_token"`
	StakeVault            string   `json:"stake_vault"`
	Signers               []string `json:"signers"`
	ApprovalThreshold     uint8    `json:"approval_threshold"`
	VoteDuration          int64    `json:"vote_duration"`
	Quorum                uint32   `json:"quorum"`
	PassPercentage        uint8    `json:"pass_percentage"`
	MinStakeToParticipate uint64   `json:"min_stake_to_participate"`
	TotalStaked           uint64   `json:"total_staked"`
}

// ProposalView is the displayed form of a proposal.
type ProposalView struct {
	ID         uint64          `json:"id"`
	Path       string          `json:"path"`
	State      string          `json:"state"`
	Proposer   string          `json:"proposer"`
	Title      string          `json:"title,omitempty"`
	Action     json.RawMessage `json:"action"`
	Approvals  []string        `json:"approvals,omitempty"`
	YesVotes   uint64          `json:"yes_votes"`
	NoVotes    uint64          `json:"no_votes"`
	VoterCount uint32          `json:"voter_count"`
	EndTime    int64           `json:"end_time"`
	ExecutedAt int64           `json:"executed_at,omitempty"`

	summary string
}

// StakeView is one participant's stake.
type StakeView struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

// ObligationView is one standing recurring payment.
type ObligationView struct {
	Recipient       string `json:"recipient"`
	Amount          uint64 `json:"amount"`
	Currency        string `json:"currency"`
	IntervalSeconds int64  `json:"interval_seconds"`
	NextClaimableAt int64  `json:"next_claimable_at"`
}

// ShowResult is everything known about one DAO.
type ShowResult struct {
	Dao         DaoView          `json:"dao"`
	Now         int64            `json:"now"`
	Proposals   []ProposalView   `json:"proposals"`
	Stakes      []StakeView      `json:"stakes"`
	Obligations []ObligationView `json:"obligations"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <dao>",
		Short: "Show a DAO's configuration and open state",
		Long: `Show a DAO's configuration, proposals, stakes and recurring payments.

Proposal state is derived at the current time: approving, voting,
closed (vote period over) or executed.

Example:
  treasury show --db ./treasury.db council
  treasury show --db ./treasury.db council --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, daoID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	sess, err := opts.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := loadShowResult(ctx, sess, daoID)
	if err != nil {
		return reportRejection(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	renderShow(cmd, result)
	return nil
}

func loadShowResult(ctx context.Context, sess *session, daoID string) (ShowResult, error) {
	eng := sess.engine

	cfg, err := eng.Dao(ctx, daoID)
	if err != nil {
		return ShowResult{}, err
	}
	proposals, err := eng.Proposals(ctx, daoID)
	if err != nil {
		return ShowResult{}, err
	}
	stakes, err := eng.Stakes(ctx, daoID)
	if err != nil {
		return ShowResult{}, err
	}
	obligations, err := eng.Obligations(ctx, daoID)
	if err != nil {
		return ShowResult{}, err
	}

	now := eng.Now()
	result := ShowResult{
		Dao: DaoView{
			ID:                    cfg.ID,
			Authority:             string(cfg.Authority),
			Treasury:              string(cfg.Treasury),
			GovernanceToken:       string(cfg.GovernanceToken),
			StakeVault:            string(cfg.StakeVault),
			Signers:               identityStrings(cfg.Signers),
			ApprovalThreshold:     cfg.ApprovalThreshold,
			VoteDuration:          cfg.VoteDuration,
			Quorum:                cfg.Quorum,
			PassPercentage:        cfg.PassPercentage,
			MinStakeToParticipate: cfg.MinStakeToParticipate,
			TotalStaked:           cfg.TotalStaked,
		},
		Now: now,
		Stakes: lo.Map(stakes, func(s dao.StakeRecord, _ int) StakeView {
			return StakeView{Owner: string(s.Owner), Amount: s.StakedAmount}
		}),
		Obligations: lo.Map(obligations, func(o dao.Obligation, _ int) ObligationView {
			return ObligationView{
				Recipient:       string(o.Recipient),
				Amount:          o.Amount,
				Currency:        string(o.Currency),
				IntervalSeconds: o.IntervalSeconds,
				NextClaimableAt: o.NextClaimableAt,
			}
		}),
	}

	result.Proposals = make([]ProposalView, 0, len(proposals))
	for i := range proposals {
		p := &proposals[i]
		action, err := dao.MarshalAction(p.Action)
		if err != nil {
			return ShowResult{}, fmt.Errorf("proposal %d: %w", p.ID, err)
		}
		result.Proposals = append(result.Proposals, ProposalView{
			ID:         p.ID,
			Path:       string(p.Path),
			State:      string(p.State(now)),
			Proposer:   string(p.Proposer),
			Title:      p.Title,
			Action:     action,
			Approvals:  identityStrings(p.Approvals),
			YesVotes:   p.YesVotes,
			NoVotes:    p.NoVotes,
			VoterCount: p.VoterCount,
			EndTime:    p.EndTime,
			ExecutedAt: p.ExecutedAt,
			summary:    describeAction(p.Action),
		})
	}
	return result, nil
}

func renderShow(cmd *cobra.Command, r ShowResult) {
	w := cmd.OutOrStdout()
	d := r.Dao

	renderTable(w, "DAO "+d.ID, table.Row{"Setting", "Value"}, []table.Row{
		{"authority", d.Authority},
		{"treasury", d.Treasury},
		{"governance token", d.GovernanceToken},
		{"stake vault", d.StakeVault},
		{"signers", strings.Join(d.Signers, ", ")},
		{"approval threshold", fmt.Sprintf("%d of %d", d.ApprovalThreshold, len(d.Signers))},
		{"vote duration", fmt.Sprintf("%ds", d.VoteDuration)},
		{"quorum", d.Quorum},
		{"pass percentage", fmt.Sprintf("%d%%", d.PassPercentage)},
		{"min stake", d.MinStakeToParticipate},
		{"total staked", d.TotalStaked},
	})

	rows := lo.Map(r.Proposals, func(p ProposalView, _ int) table.Row {
		tally := fmt.Sprintf("%d approvals", len(p.Approvals))
		if p.Path == string(dao.PathStakeVote) {
			tally = fmt.Sprintf("%d yes / %d no (%d voters)", p.YesVotes, p.NoVotes, p.VoterCount)
		}
		return table.Row{p.ID, p.Path, p.State, p.Proposer, p.summary, tally, formatTime(p.EndTime)}
	})
	renderTable(w, "Proposals", table.Row{"ID", "Path", "State", "Proposer", "Action", "Tally", "End"}, rows, 1)

	rows = lo.Map(r.Stakes, func(s StakeView, _ int) table.Row {
		return table.Row{s.Owner, s.Amount}
	})
	renderTable(w, "Stakes", table.Row{"Owner", "Staked"}, rows, 2)

	rows = lo.Map(r.Obligations, func(o ObligationView, _ int) table.Row {
		return table.Row{o.Recipient, fmt.Sprintf("%d %s", o.Amount, o.Currency), fmt.Sprintf("%ds", o.IntervalSeconds), o.NextClaimableAt}
	})
	renderTable(w, "Recurring payments", table.Row{"Recipient", "Amount", "Every", "Next claim"}, rows, 4)
}

// describeAction is a one-line summary of a proposal's action.
func describeAction(a dao.Action) string {
	switch act := a.(type) {
	case dao.WithdrawTreasury:
		return fmt.Sprintf("withdraw %d to %s", act.Amount, act.Recipient)
	case dao.AddRecurringPayment:
		return fmt.Sprintf("pay %s %d %s every %ds", act.Recipient, act.Amount, act.Currency, act.Interval)
	case dao.UpdateDaoConfig:
		switch op := act.Op.(type) {
		case dao.AddSigner:
			return "add signer " + string(op.Signer)
		case dao.RemoveSigner:
			return "remove signer " + string(op.Signer)
		case dao.ChangeThreshold:
			return fmt.Sprintf("change threshold to %d", op.Threshold)
		}
	}
	if a == nil {
		return "-"
	}
	return string(a.Kind())
}
