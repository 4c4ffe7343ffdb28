package dao

// Identity names a participant: a signer, a staker, the treasury, a
// payment recipient. Authentication happens before the engine sees it.
type Identity string

// String returns the identity as a plain string.
func (id Identity) String() string { return string(id) }

// Asset names a fungible balance held by the custodian.
type Asset string

// AssetNative is the treasury currency. Recurring payments, treasury
// withdrawals and the protocol fee are all denominated in it.
const AssetNative Asset = "SOL"

// Limits carried over from the on-chain account layout.
const (
	MaxSigners        = 5
	MaxApprovals      = MaxSigners
	MaxTitleLength    = 50
	MaxDescriptionLen = 200
	MaxPassPercentage = 100
)

// Path selects which authorization protocol gates a proposal.
type Path string

const (
	PathMultisig  Path = "multisig"
	PathStakeVote Path = "stake_vote"
)

// ParsePath converts a string into a Path.
func ParsePath(s string) (Path, error) {
	switch Path(s) {
	case PathMultisig, PathStakeVote:
		return Path(s), nil
	default:
		return "", ErrUnknownPath.With("path", s)
	}
}

// VoteChoice is a stake-vote ballot.
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// ParseVoteChoice converts a string into a VoteChoice.
func ParseVoteChoice(s string) (VoteChoice, error) {
	switch VoteChoice(s) {
	case VoteYes, VoteNo:
		return VoteChoice(s), nil
	default:
		return "", ErrInvalidVoteChoice.With("choice", s)
	}
}
