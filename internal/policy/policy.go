// Package policy decides whether a proposal's gating condition holds.
//
// Two strategies share the dao.Proposal entity: Multisig counts signer
// approvals against the approval threshold, StakeVote checks headcount
// quorum and a stake-weighted majority once the voting deadline passes.
// Strategies are stateless; the engine loads the inputs inside its
// transaction and passes them in.
package policy

import (
	"strconv"

	"github.com/holiman/uint256"

	"github.com/roach88/treasury/internal/dao"
)

// Strategy evaluates one authorization path.
type Strategy interface {
	// Path is the authorization path this strategy gates.
	Path() dao.Path

	// CheckProposer reports whether proposer may open a proposal on this
	// path. stake is the proposer's current stake (0 when absent).
	CheckProposer(cfg dao.Config, proposer dao.Identity, stake uint64) error

	// Evaluate reports whether p may execute at time now. A nil error
	// means the gating condition holds.
	Evaluate(cfg dao.Config, p dao.Proposal, now int64) error
}

// For returns the strategy for path.
func For(path dao.Path) (Strategy, error) {
	switch path {
	case dao.PathMultisig:
		return Multisig{}, nil
	case dao.PathStakeVote:
		return StakeVote{}, nil
	default:
		return nil, dao.ErrUnknownPath.With("path", string(path))
	}
}

// Multisig gates proposals on a count of distinct signer approvals.
type Multisig struct{}

func (Multisig) Path() dao.Path { return dao.PathMultisig }

func (Multisig) CheckProposer(cfg dao.Config, proposer dao.Identity, _ uint64) error {
	if !cfg.HasSigner(proposer) {
		return dao.ErrUnauthorizedSigner.With("signer", string(proposer))
	}
	return nil
}

// CheckApproval validates a new approval by signer. Approvals are
// monotone: there is no retraction.
func (Multisig) CheckApproval(cfg dao.Config, p dao.Proposal, signer dao.Identity) error {
	if p.Path != dao.PathMultisig {
		return dao.ErrWrongPath.With("path", string(p.Path))
	}
	if p.Executed {
		return dao.ErrProposalAlreadyExecuted
	}
	if !cfg.HasSigner(signer) {
		return dao.ErrUnauthorizedSigner.With("signer", string(signer))
	}
	if p.HasApproved(signer) {
		return dao.ErrAlreadyApproved.With("signer", string(signer))
	}
	if len(p.Approvals) >= dao.MaxApprovals {
		return dao.ErrTooManySigners.With("approvals", strconv.Itoa(len(p.Approvals)))
	}
	return nil
}

func (Multisig) Evaluate(cfg dao.Config, p dao.Proposal, _ int64) error {
	if p.Path != dao.PathMultisig {
		return dao.ErrWrongPath.With("path", string(p.Path))
	}
	if p.Executed {
		return dao.ErrProposalAlreadyExecuted
	}
	if !MultisigSatisfied(len(p.Approvals), cfg.ApprovalThreshold) {
		return dao.ErrThresholdNotMet.
			With("approvals", strconv.Itoa(len(p.Approvals))).
			With("threshold", strconv.Itoa(int(cfg.ApprovalThreshold)))
	}
	return nil
}

// MultisigSatisfied reports approvals >= threshold.
func MultisigSatisfied(approvals int, threshold uint8) bool {
	return approvals >= int(threshold)
}

// StakeVote gates proposals on a stake-weighted vote.
type StakeVote struct{}

func (StakeVote) Path() dao.Path { return dao.PathStakeVote }

func (StakeVote) CheckProposer(cfg dao.Config, proposer dao.Identity, stake uint64) error {
	if stake < cfg.MinStakeToParticipate {
		return dao.ErrInsufficientStake.
			With("participant", string(proposer)).
			With("stake", strconv.FormatUint(stake, 10)).
			With("required", strconv.FormatUint(cfg.MinStakeToParticipate, 10))
	}
	return nil
}

// CheckBallot validates a new ballot from voter holding stake at time
// now. Duplicate ballots are caught by the vote record's uniqueness.
func (StakeVote) CheckBallot(cfg dao.Config, p dao.Proposal, voter dao.Identity, stake uint64, now int64) error {
	if p.Path != dao.PathStakeVote {
		return dao.ErrWrongPath.With("path", string(p.Path))
	}
	if p.Executed {
		return dao.ErrProposalAlreadyExecuted
	}
	if now >= p.EndTime {
		return dao.ErrProposalNotActive.With("end_time", strconv.FormatInt(p.EndTime, 10))
	}
	if stake == 0 || stake < cfg.MinStakeToParticipate {
		return dao.ErrInsufficientStake.
			With("participant", string(voter)).
			With("stake", strconv.FormatUint(stake, 10)).
			With("required", strconv.FormatUint(cfg.MinStakeToParticipate, 10))
	}
	return nil
}

func (StakeVote) Evaluate(cfg dao.Config, p dao.Proposal, now int64) error {
	if p.Path != dao.PathStakeVote {
		return dao.ErrWrongPath.With("path", string(p.Path))
	}
	if p.Executed {
		return dao.ErrProposalAlreadyExecuted
	}
	if now < p.EndTime {
		return dao.ErrVotePeriodNotOver.With("end_time", strconv.FormatInt(p.EndTime, 10))
	}
	return StakeVoteSatisfied(p.YesVotes, p.NoVotes, p.VoterCount, cfg.Quorum, cfg.PassPercentage)
}

// StakeVoteSatisfied applies quorum then majority:
//
//	voterCount >= quorum
//	yes > floor((yes+no) * passPct / 100)
//
// Ties at the boundary fail. The product is computed in 256 bits so it
// cannot overflow.
func StakeVoteSatisfied(yes, no uint64, voterCount, quorum uint32, passPct uint8) error {
	if voterCount < quorum {
		return dao.ErrQuorumNotReached.
			With("voters", strconv.FormatUint(uint64(voterCount), 10)).
			With("quorum", strconv.FormatUint(uint64(quorum), 10))
	}
	threshold := PassThreshold(yes, no, passPct)
	if !uint256.NewInt(yes).Gt(threshold) {
		return dao.ErrVoteFailedMajority.
			With("yes", strconv.FormatUint(yes, 10)).
			With("threshold", threshold.Dec())
	}
	return nil
}

// PassThreshold returns floor((yes+no) * passPct / 100).
func PassThreshold(yes, no uint64, passPct uint8) *uint256.Int {
	total := new(uint256.Int).Add(uint256.NewInt(yes), uint256.NewInt(no))
	total.Mul(total, uint256.NewInt(uint64(passPct)))
	return total.Div(total, uint256.NewInt(100))
}
