package dao

import "github.com/samber/lo"

// State is the lifecycle position of a proposal derived from its record.
type State string

const (
	// StateApproving: multisig proposal collecting signer approvals.
	StateApproving State = "approving"
	// StateVoting: stake-vote proposal before its deadline.
	StateVoting State = "voting"
	// StateClosed: stake-vote deadline passed, awaiting execution.
	StateClosed State = "closed"
	// StateExecuted is terminal.
	StateExecuted State = "executed"
)

// Proposal is one governance intent keyed by (DaoID, ID).
type Proposal struct {
	DaoID       string
	ID          uint64
	Path        Path
	Proposer    Identity
	Action      Action
	Title       string
	Description string
	CreatedAt   int64
	Executed    bool
	ExecutedAt  int64

	// Multisig tally.
	Approvals  []Identity
	ApprovedAt *int64

	// Stake-vote tally.
	YesVotes   uint64
	NoVotes    uint64
	VoterCount uint32

	// EndTime is the stake-vote deadline, or for multisig the moment the
	// threshold was first met. Zero means unset.
	EndTime int64

	Version int64
}

// State derives the lifecycle state at time now.
func (p *Proposal) State(now int64) State {
	switch {
	case p.Executed:
		return StateExecuted
	case p.Path == PathStakeVote && now >= p.EndTime:
		return StateClosed
	case p.Path == PathStakeVote:
		return StateVoting
	default:
		return StateApproving
	}
}

// HasApproved reports whether signer already approved.
func (p *Proposal) HasApproved(signer Identity) bool {
	return lo.Contains(p.Approvals, signer)
}

// StakeRecord is one participant's escrowed balance.
type StakeRecord struct {
	DaoID        string
	Owner        Identity
	StakedAmount uint64
	Version      int64
}

// VoteRecord is created exactly once per (proposal, voter) and never
// changes.
type VoteRecord struct {
	DaoID      string
	ProposalID uint64
	Voter      Identity
	Choice     VoteChoice
	Weight     uint64
	CastAt     int64
}

// Obligation is a standing recurring payment created by an executed
// AddRecurringPayment action.
type Obligation struct {
	DaoID           string
	Recipient       Identity
	Amount          uint64
	Currency        Asset
	IntervalSeconds int64
	NextClaimableAt int64
	Version         int64
}
