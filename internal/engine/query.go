package engine

import (
	"context"
	"errors"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// Read-only views. Each runs in its own read transaction and never takes
// the writer lock.

// Dao returns a DAO's configuration.
func (e *Engine) Dao(ctx context.Context, daoID string) (dao.Config, error) {
	var cfg dao.Config
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		cfg, err = tx.GetDao(ctx, daoID)
		return daoLookup(err, daoID)
	})
	return cfg, err
}

// Daos lists every DAO ordered by id.
func (e *Engine) Daos(ctx context.Context) ([]dao.Config, error) {
	var out []dao.Config
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListDaos(ctx)
		return err
	})
	return out, err
}

// Proposal returns one proposal.
func (e *Engine) Proposal(ctx context.Context, daoID string, id uint64) (dao.Proposal, error) {
	var p dao.Proposal
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		p, err = tx.GetProposal(ctx, daoID, id)
		return proposalLookup(err, daoID, id)
	})
	return p, err
}

// Proposals lists a DAO's proposals ordered by id.
func (e *Engine) Proposals(ctx context.Context, daoID string) ([]dao.Proposal, error) {
	var out []dao.Proposal
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListProposals(ctx, daoID)
		return err
	})
	return out, err
}

// Stake returns owner's stake. Owners with no record read as zero.
func (e *Engine) Stake(ctx context.Context, daoID string, owner dao.Identity) (dao.StakeRecord, error) {
	var rec dao.StakeRecord
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		rec, err = tx.GetStake(ctx, daoID, owner)
		if errors.Is(err, store.ErrNotFound) {
			rec = dao.StakeRecord{DaoID: daoID, Owner: owner}
			return nil
		}
		return err
	})
	return rec, err
}

// Stakes lists a DAO's stake records ordered by owner.
func (e *Engine) Stakes(ctx context.Context, daoID string) ([]dao.StakeRecord, error) {
	var out []dao.StakeRecord
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListStakes(ctx, daoID)
		return err
	})
	return out, err
}

// Obligation returns recipient's recurring payment.
func (e *Engine) Obligation(ctx context.Context, daoID string, recipient dao.Identity) (dao.Obligation, error) {
	var ob dao.Obligation
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		ob, err = tx.GetObligation(ctx, daoID, recipient)
		if errors.Is(err, store.ErrNotFound) {
			return dao.ErrNoClaimablePayment.With("recipient", string(recipient))
		}
		return err
	})
	return ob, err
}

// Obligations lists a DAO's recurring payments ordered by recipient.
func (e *Engine) Obligations(ctx context.Context, daoID string) ([]dao.Obligation, error) {
	var out []dao.Obligation
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListObligations(ctx, daoID)
		return err
	})
	return out, err
}

// Votes lists the ballots on a proposal ordered by voter.
func (e *Engine) Votes(ctx context.Context, daoID string, proposalID uint64) ([]dao.VoteRecord, error) {
	var out []dao.VoteRecord
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListVotes(ctx, daoID, proposalID)
		return err
	})
	return out, err
}

// Events lists a DAO's events with seq > afterSeq in seq order. An empty
// daoID lists every DAO's events.
func (e *Engine) Events(ctx context.Context, daoID string, afterSeq int64) ([]dao.Event, error) {
	var out []dao.Event
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.ListEvents(ctx, daoID, afterSeq)
		return err
	})
	return out, err
}

// Balance reads a custodian balance. Must not be called from inside an
// operation.
func (e *Engine) Balance(ctx context.Context, owner dao.Identity, asset dao.Asset) (uint64, error) {
	return e.custodian.Balance(ctx, owner, asset)
}
