package engine

// # Audit
//
// The events table is the immutable record of every committed operation;
// the daos, stakes, proposals, votes and obligations tables are the
// current state those operations produced. Audit cross-checks the two and
// re-derives the invariants the operations are meant to preserve:
//
//   - the sum of stake records equals the DAO's TotalStaked
//   - the config passes Validate (threshold within 1..len(signers), at
//     most five unique signers, pass percentage within 0..100)
//   - every executed proposal has exactly the execution event, and every
//     execution event names an executed proposal
//   - stake-vote tallies equal the sum of their ballot weights, and the
//     voter count equals the number of ballots
//   - multisig approvals are unique
//   - every event's stored id matches the content hash of its fields, so
//     a rewritten event is detected
//
// Audit only reads. It never repairs; violations are for an operator.

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// AuditError lists the invariant violations found in one DAO.
type AuditError struct {
	DaoID      string
	Violations []string
}

// Error implements the error interface.
func (e *AuditError) Error() string {
	return fmt.Sprintf("audit %s: %d violation(s): %s", e.DaoID, len(e.Violations), strings.Join(e.Violations, "; "))
}

// Audit re-derives daoID's invariants from storage. Returns nil when the
// DAO is consistent, an *AuditError listing every violation otherwise, or
// another error when storage could not be read.
func (e *Engine) Audit(ctx context.Context, daoID string) error {
	var violations []string
	report := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	err := e.store.View(ctx, func(tx *store.Tx) error {
		cfg, err := tx.GetDao(ctx, daoID)
		if err != nil {
			return daoLookup(err, daoID)
		}
		if err := cfg.Validate(); err != nil {
			report("config: %v", err)
		}

		stakes, err := tx.ListStakes(ctx, daoID)
		if err != nil {
			return err
		}
		auditStakes(cfg, stakes, report)

		proposals, err := tx.ListProposals(ctx, daoID)
		if err != nil {
			return err
		}
		executed, err := tx.ExecutedProposalIDs(ctx, daoID)
		if err != nil {
			return err
		}
		for _, p := range proposals {
			votes, err := tx.ListVotes(ctx, daoID, p.ID)
			if err != nil {
				return err
			}
			auditProposal(p, votes, executed[p.ID], report)
			delete(executed, p.ID)
		}
		for id := range executed {
			report("proposal %d: execution event without proposal", id)
		}

		events, err := tx.ListEvents(ctx, daoID, 0)
		if err != nil {
			return err
		}
		auditEvents(events, report)

		obligations, err := tx.ListObligations(ctx, daoID)
		if err != nil {
			return err
		}
		for _, ob := range obligations {
			if ob.Amount == 0 || ob.IntervalSeconds <= 0 || ob.Currency != dao.AssetNative {
				report("obligation %s: malformed terms (amount=%d interval=%d currency=%s)",
					ob.Recipient, ob.Amount, ob.IntervalSeconds, ob.Currency)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		e.logger.Warn("audit found violations", "dao", daoID, "count", len(violations))
		return &AuditError{DaoID: daoID, Violations: violations}
	}
	return nil
}

func auditStakes(cfg dao.Config, stakes []dao.StakeRecord, report func(string, ...any)) {
	sum := new(uint256.Int)
	for _, s := range stakes {
		if s.StakedAmount == 0 {
			report("stake %s: zero-balance record", s.Owner)
		}
		sum.Add(sum, uint256.NewInt(s.StakedAmount))
	}
	if !sum.Eq(uint256.NewInt(cfg.TotalStaked)) {
		report("total_staked: recorded %d, stake records sum to %s", cfg.TotalStaked, sum.Dec())
	}
}

func auditProposal(p dao.Proposal, votes []dao.VoteRecord, hasEvent bool, report func(string, ...any)) {
	switch {
	case p.Executed && !hasEvent:
		report("proposal %d: executed without execution event", p.ID)
	case !p.Executed && hasEvent:
		report("proposal %d: execution event but not executed", p.ID)
	}

	switch p.Path {
	case dao.PathMultisig:
		if dups := lo.FindDuplicates(p.Approvals); len(dups) > 0 {
			report("proposal %d: duplicate approval by %s", p.ID, dups[0])
		}
		if len(votes) > 0 {
			report("proposal %d: multisig proposal has %d ballots", p.ID, len(votes))
		}
	case dao.PathStakeVote:
		yes, no := new(uint256.Int), new(uint256.Int)
		for _, v := range votes {
			if v.Choice == dao.VoteYes {
				yes.Add(yes, uint256.NewInt(v.Weight))
			} else {
				no.Add(no, uint256.NewInt(v.Weight))
			}
		}
		if !yes.Eq(uint256.NewInt(p.YesVotes)) || !no.Eq(uint256.NewInt(p.NoVotes)) {
			report("proposal %d: tallies yes=%d no=%d, ballots sum to yes=%s no=%s",
				p.ID, p.YesVotes, p.NoVotes, yes.Dec(), no.Dec())
		}
		if int(p.VoterCount) != len(votes) {
			report("proposal %d: voter_count %d, %d ballots", p.ID, p.VoterCount, len(votes))
		}
		if len(p.Approvals) > 0 {
			report("proposal %d: stake-vote proposal has approvals", p.ID)
		}
	default:
		report("proposal %d: unknown path %q", p.ID, p.Path)
	}
}

func auditEvents(events []dao.Event, report func(string, ...any)) {
	var prev int64
	for _, ev := range events {
		if ev.Seq <= prev {
			report("event seq %d: not after %d", ev.Seq, prev)
		}
		prev = ev.Seq

		id, err := dao.EventID(ev.DaoID, ev.Seq, ev.Kind, ev.At, ev.Payload)
		if err != nil {
			report("event seq %d: %v", ev.Seq, err)
			continue
		}
		if id != ev.ID {
			report("event seq %d: id %s does not match content hash %s", ev.Seq, ev.ID, id)
		}
	}
}
