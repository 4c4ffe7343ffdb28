package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/policy"
	"github.com/roach88/treasury/internal/store"
)

// CreateRequest opens a proposal.
type CreateRequest struct {
	DaoID       string
	ID          uint64
	Path        dao.Path
	Proposer    dao.Identity
	Action      dao.Action
	Title       string
	Description string
}

// CreateProposal opens a proposal on one authorization path.
//
// The action is validated eagerly against the DAO's current config, so a
// proposal that could never execute is rejected up front. Stake-vote
// proposals get a deadline of now + VoteDuration.
func (e *Engine) CreateProposal(ctx context.Context, req CreateRequest) (dao.Proposal, error) {
	strategy, err := policy.For(req.Path)
	if err != nil {
		return dao.Proposal{}, err
	}
	if req.Action == nil {
		return dao.Proposal{}, dao.ErrUnknownAction.With("kind", "<nil>")
	}

	var out dao.Proposal
	err = e.update(ctx, "create_proposal", func(o *op) error {
		cfg, err := o.loadDao(req.DaoID)
		if err != nil {
			return err
		}

		var stake uint64
		if req.Path == dao.PathStakeVote {
			rec, err := o.stakeOf(req.DaoID, req.Proposer)
			if err != nil {
				return err
			}
			stake = rec.StakedAmount
		}
		if err := strategy.CheckProposer(cfg, req.Proposer, stake); err != nil {
			return err
		}
		if err := dao.ValidateAction(cfg, req.Action); err != nil {
			return err
		}
		if err := dao.ValidateText(req.Title, req.Description); err != nil {
			return err
		}

		p := dao.Proposal{
			DaoID:       req.DaoID,
			ID:          req.ID,
			Path:        req.Path,
			Proposer:    req.Proposer,
			Action:      req.Action,
			Title:       req.Title,
			Description: req.Description,
			CreatedAt:   o.now,
		}
		if req.Path == dao.PathStakeVote {
			p.EndTime, err = addTime(o.now, cfg.VoteDuration, "end_time")
			if err != nil {
				return err
			}
		}

		if err := o.tx.InsertProposal(o.ctx, &p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return dao.ErrProposalExists.
					With("dao", req.DaoID).
					With("proposal", strconv.FormatUint(req.ID, 10))
			}
			return err
		}

		action, err := dao.ActionFields(p.Action)
		if err != nil {
			return err
		}
		o.emit(p.DaoID, dao.EventProposalCreated, map[string]any{
			"proposal_id": p.ID,
			"path":        p.Path,
			"proposer":    string(p.Proposer),
			"title":       p.Title,
			"action":      action,
			"end_time":    p.EndTime,
		})
		out = p
		return nil
	})
	return out, err
}

// Approve records signer's approval of a multisig proposal.
//
// When this approval first brings the count to the threshold, the
// proposal executes in the same transaction. If execution fails the
// approval is not recorded either and the signer may approve again later.
func (e *Engine) Approve(ctx context.Context, daoID string, proposalID uint64, signer dao.Identity) (dao.Proposal, error) {
	var out dao.Proposal
	err := e.update(ctx, "approve", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}
		p, err := o.loadProposal(daoID, proposalID)
		if err != nil {
			return err
		}

		ms := policy.Multisig{}
		if err := ms.CheckApproval(cfg, p, signer); err != nil {
			return err
		}

		p.Approvals = append(p.Approvals, signer)
		o.emit(daoID, dao.EventProposalApproved, map[string]any{
			"proposal_id": p.ID,
			"signer":      string(signer),
			"approvals":   len(p.Approvals),
			"threshold":   cfg.ApprovalThreshold,
		})

		if p.ApprovedAt == nil && policy.MultisigSatisfied(len(p.Approvals), cfg.ApprovalThreshold) {
			now := o.now
			p.ApprovedAt = &now
			p.EndTime = now
			if err := e.executeProposal(o, &cfg, &p); err != nil {
				return err
			}
		}

		if err := o.tx.SaveProposal(o.ctx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// Vote casts voter's ballot on a stake-vote proposal, weighted by the
// voter's stake at this moment.
func (e *Engine) Vote(ctx context.Context, daoID string, proposalID uint64, voter dao.Identity, choice dao.VoteChoice) (dao.VoteRecord, error) {
	if _, err := dao.ParseVoteChoice(string(choice)); err != nil {
		return dao.VoteRecord{}, err
	}

	var out dao.VoteRecord
	err := e.update(ctx, "vote", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}
		p, err := o.loadProposal(daoID, proposalID)
		if err != nil {
			return err
		}
		if p.Path != dao.PathStakeVote {
			return dao.ErrWrongPath.With("path", string(p.Path))
		}

		_, err = o.tx.GetVote(o.ctx, daoID, proposalID, voter)
		switch {
		case err == nil:
			return dao.ErrAlreadyVoted.With("voter", string(voter))
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		rec, err := o.stakeOf(daoID, voter)
		if err != nil {
			return err
		}
		if err := (policy.StakeVote{}).CheckBallot(cfg, p, voter, rec.StakedAmount, o.now); err != nil {
			return err
		}

		weight := rec.StakedAmount
		switch choice {
		case dao.VoteYes:
			p.YesVotes, err = addU64(p.YesVotes, weight, "yes_votes")
		case dao.VoteNo:
			p.NoVotes, err = addU64(p.NoVotes, weight, "no_votes")
		}
		if err != nil {
			return err
		}
		if p.VoterCount == 1<<32-1 {
			return overflow("voter_count")
		}
		p.VoterCount++

		ballot := dao.VoteRecord{
			DaoID:      daoID,
			ProposalID: proposalID,
			Voter:      voter,
			Choice:     choice,
			Weight:     weight,
			CastAt:     o.now,
		}
		if err := o.tx.InsertVote(o.ctx, ballot); err != nil {
			return insertRace(err)
		}
		if err := o.tx.SaveProposal(o.ctx, &p); err != nil {
			return err
		}

		o.emit(daoID, dao.EventVoteCast, map[string]any{
			"proposal_id": p.ID,
			"voter":       string(voter),
			"choice":      choice,
			"weight":      weight,
			"yes_votes":   p.YesVotes,
			"no_votes":    p.NoVotes,
			"voter_count": p.VoterCount,
		})
		out = ballot
		return nil
	})
	return out, err
}

// Execute runs a proposal whose gating condition holds. Anyone may call
// it. On failure nothing changes and the call may be retried.
func (e *Engine) Execute(ctx context.Context, daoID string, proposalID uint64) (dao.Proposal, error) {
	var out dao.Proposal
	err := e.update(ctx, "execute", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}
		p, err := o.loadProposal(daoID, proposalID)
		if err != nil {
			return err
		}

		strategy, err := policy.For(p.Path)
		if err != nil {
			return err
		}
		if err := strategy.Evaluate(cfg, p, o.now); err != nil {
			return err
		}

		if p.Path == dao.PathMultisig && p.ApprovedAt == nil {
			// Threshold was met by a later threshold change rather than
			// by an approval.
			now := o.now
			p.ApprovedAt = &now
			p.EndTime = now
		}
		if err := e.executeProposal(o, &cfg, &p); err != nil {
			return err
		}
		if err := o.tx.SaveProposal(o.ctx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// executeProposal applies p's action and marks it executed. The caller
// saves p.
func (e *Engine) executeProposal(o *op, cfg *dao.Config, p *dao.Proposal) error {
	x := &actionExecutor{op: o, cfg: cfg}
	if err := p.Action.Accept(x); err != nil {
		return err
	}
	if x.configChanged {
		if err := o.tx.SaveDao(o.ctx, cfg); err != nil {
			return err
		}
	}

	p.Executed = true
	p.ExecutedAt = o.now

	action, err := dao.ActionFields(p.Action)
	if err != nil {
		return err
	}
	o.emit(p.DaoID, dao.EventProposalExecuted, map[string]any{
		"proposal_id": p.ID,
		"path":        p.Path,
		"action":      action,
	})
	return nil
}
