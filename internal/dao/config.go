package dao

import (
	"strconv"

	"github.com/samber/lo"
)

// Config is the per-DAO governance configuration. It is loaded and saved
// explicitly inside each engine transaction; nothing holds it globally.
type Config struct {
	ID                    string
	Authority             Identity
	Treasury              Identity
	GovernanceToken       Asset
	StakeVault            Identity
	Signers               []Identity
	ApprovalThreshold     uint8
	VoteDuration          int64
	TotalStaked           uint64
	Quorum                uint32
	PassPercentage        uint8
	MinStakeToParticipate uint64
	StakingYieldRate      uint16
	CreatedAt             int64

	// Version is the optimistic-concurrency counter maintained by the store.
	Version int64
}

// Validate checks the configuration invariants. It runs on creation and
// after every mutation.
func (c *Config) Validate() error {
	if c.ID == "" {
		return ErrInvalidIdentity.With("field", "id")
	}
	switch Identity("") {
	case c.Authority:
		return ErrInvalidIdentity.With("field", "authority")
	case c.Treasury:
		return ErrInvalidIdentity.With("field", "treasury")
	case c.StakeVault:
		return ErrInvalidIdentity.With("field", "stake_vault")
	}
	if c.GovernanceToken == "" {
		return ErrInvalidIdentity.With("field", "governance_token")
	}
	// Escrowed stake must never share an account with spendable funds.
	if c.StakeVault == c.Treasury || c.StakeVault == c.Authority {
		return ErrInvalidIdentity.With("field", "stake_vault").With("conflicts_with", string(c.StakeVault))
	}
	if len(c.Signers) > MaxSigners {
		return ErrTooManySigners.With("count", strconv.Itoa(len(c.Signers)))
	}
	for _, s := range c.Signers {
		if s == "" {
			return ErrInvalidIdentity.With("field", "signers")
		}
	}
	if dups := lo.FindDuplicates(c.Signers); len(dups) > 0 {
		return ErrSignerAlreadyExists.With("signer", string(dups[0]))
	}
	if c.HasSigner(c.StakeVault) {
		return ErrInvalidIdentity.With("field", "signers").With("conflicts_with", string(c.StakeVault))
	}
	if c.ApprovalThreshold == 0 {
		return ErrInvalidThreshold
	}
	if int(c.ApprovalThreshold) > len(c.Signers) {
		return ErrInvalidNewThreshold.
			With("threshold", strconv.Itoa(int(c.ApprovalThreshold))).
			With("signers", strconv.Itoa(len(c.Signers)))
	}
	if c.VoteDuration <= 0 {
		return ErrInvalidVoteDuration.With("vote_duration", strconv.FormatInt(c.VoteDuration, 10))
	}
	if c.PassPercentage > MaxPassPercentage {
		return ErrInvalidPassPercentage.With("pass_percentage", strconv.Itoa(int(c.PassPercentage)))
	}
	return nil
}

// HasSigner reports whether id is in the signer set.
func (c *Config) HasSigner(id Identity) bool {
	return lo.Contains(c.Signers, id)
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Signers = append([]Identity(nil), c.Signers...)
	return c
}

// ApplyOp mutates the signer set or threshold and re-validates the
// configuration. On error c is unchanged.
func (c *Config) ApplyOp(op ConfigOp) error {
	if op == nil {
		return ErrUnknownAction.With("op", "<nil>")
	}
	next := c.Clone()
	if err := op.AcceptOp(&opApplier{cfg: &next}); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// CheckOp reports whether ApplyOp would succeed against the current
// configuration without mutating it.
func (c Config) CheckOp(op ConfigOp) error {
	next := c.Clone()
	return next.ApplyOp(op)
}

type opApplier struct {
	cfg *Config
}

func (a *opApplier) VisitAddSigner(op AddSigner) error {
	if op.Signer == "" {
		return ErrInvalidIdentity.With("field", "signer")
	}
	if a.cfg.HasSigner(op.Signer) {
		return ErrSignerAlreadyExists.With("signer", string(op.Signer))
	}
	if len(a.cfg.Signers) >= MaxSigners {
		return ErrTooManySigners.With("signer", string(op.Signer))
	}
	a.cfg.Signers = append(a.cfg.Signers, op.Signer)
	return nil
}

func (a *opApplier) VisitRemoveSigner(op RemoveSigner) error {
	if !a.cfg.HasSigner(op.Signer) {
		return ErrSignerNotFound.With("signer", string(op.Signer))
	}
	if len(a.cfg.Signers)-1 < int(a.cfg.ApprovalThreshold) {
		return ErrCannotRemoveSigner.
			With("signer", string(op.Signer)).
			With("threshold", strconv.Itoa(int(a.cfg.ApprovalThreshold)))
	}
	a.cfg.Signers = lo.Without(a.cfg.Signers, op.Signer)
	return nil
}

func (a *opApplier) VisitChangeThreshold(op ChangeThreshold) error {
	if op.Threshold == 0 || int(op.Threshold) > len(a.cfg.Signers) {
		return ErrInvalidNewThreshold.
			With("threshold", strconv.Itoa(int(op.Threshold))).
			With("signers", strconv.Itoa(len(a.cfg.Signers)))
	}
	a.cfg.ApprovalThreshold = op.Threshold
	return nil
}
