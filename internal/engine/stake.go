package engine

import (
	"context"

	"github.com/roach88/treasury/internal/dao"
)

// Deposit escrows amount of the DAO's governance token from participant
// into the stake vault and credits participant's stake.
//
// The custodian transfer and the bookkeeping commit together; a failed
// transfer records nothing.
func (e *Engine) Deposit(ctx context.Context, daoID string, participant dao.Identity, amount uint64) (dao.StakeRecord, error) {
	if amount == 0 {
		return dao.StakeRecord{}, dao.ErrInvalidAmount
	}
	if participant == "" {
		return dao.StakeRecord{}, dao.ErrInvalidIdentity.With("field", "participant")
	}

	var out dao.StakeRecord
	err := e.update(ctx, "deposit", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}
		rec, err := o.stakeOf(daoID, participant)
		if err != nil {
			return err
		}

		staked, err := addU64(rec.StakedAmount, amount, "staked_amount")
		if err != nil {
			return err
		}
		total, err := addU64(cfg.TotalStaked, amount, "total_staked")
		if err != nil {
			return err
		}

		err = o.custodian.Transfer(o.ctx, cfg.GovernanceToken, participant, cfg.StakeVault, amount)
		if err != nil {
			return fundsShortfall(err, participant)
		}

		isNew := rec.Version == 0
		rec.StakedAmount = staked
		if isNew {
			err = insertRace(o.tx.InsertStake(o.ctx, &rec))
		} else {
			err = o.tx.SaveStake(o.ctx, &rec)
		}
		if err != nil {
			return err
		}
		cfg.TotalStaked = total
		if err := o.tx.SaveDao(o.ctx, &cfg); err != nil {
			return err
		}

		o.emit(daoID, dao.EventTokensStaked, map[string]any{
			"owner":         string(participant),
			"amount":        amount,
			"staked_amount": rec.StakedAmount,
			"total_staked":  cfg.TotalStaked,
		})
		out = rec
		return nil
	})
	return out, err
}

// WithdrawAll releases participant's entire stake back from the vault
// and deletes the record. Returns the amount released.
//
// Votes already cast keep their recorded weight.
func (e *Engine) WithdrawAll(ctx context.Context, daoID string, participant dao.Identity) (uint64, error) {
	var released uint64
	err := e.update(ctx, "withdraw_all", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}
		rec, err := o.stakeOf(daoID, participant)
		if err != nil {
			return err
		}
		if rec.Version == 0 || rec.StakedAmount == 0 {
			return dao.ErrNoStakeFound.With("participant", string(participant))
		}

		amount := rec.StakedAmount
		if cfg.TotalStaked < amount {
			return overflow("total_staked")
		}

		if err := o.tx.DeleteStake(o.ctx, rec); err != nil {
			return err
		}
		cfg.TotalStaked -= amount
		if err := o.tx.SaveDao(o.ctx, &cfg); err != nil {
			return err
		}

		err = o.custodian.Transfer(o.ctx, cfg.GovernanceToken, cfg.StakeVault, participant, amount)
		if err != nil {
			return fundsShortfall(err, cfg.StakeVault)
		}

		o.emit(daoID, dao.EventTokensUnstaked, map[string]any{
			"owner":        string(participant),
			"amount":       amount,
			"total_staked": cfg.TotalStaked,
		})
		released = amount
		return nil
	})
	return released, err
}
