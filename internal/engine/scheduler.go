package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// DefaultFeeAmount is the protocol fee, in native base units, charged
// on each recurring-payment claim when configuration does not override it.
const DefaultFeeAmount uint64 = 1_000_000

// FeeSchedule is the protocol fee taken from each claim's payout.
// A zero Amount or empty Recipient disables the fee.
type FeeSchedule struct {
	Recipient dao.Identity
	Amount    uint64
}

func (f FeeSchedule) enabled() bool {
	return f.Amount > 0 && f.Recipient != ""
}

// Claim pays one period of claimant's recurring payment.
//
// The payout moves from the treasury to the claimant, then the protocol
// fee moves from the claimant to the fee recipient, then the obligation
// re-arms one interval later. Claims never catch up: one call pays one
// period however late it is.
func (e *Engine) Claim(ctx context.Context, daoID string, claimant dao.Identity) (dao.Obligation, error) {
	var out dao.Obligation
	err := e.update(ctx, "claim", func(o *op) error {
		cfg, err := o.loadDao(daoID)
		if err != nil {
			return err
		}

		ob, err := o.tx.GetObligation(o.ctx, daoID, claimant)
		if errors.Is(err, store.ErrNotFound) {
			return dao.ErrNoClaimablePayment.With("recipient", string(claimant))
		}
		if err != nil {
			return err
		}

		if o.now < ob.NextClaimableAt {
			return dao.ErrClaimTooEarly.
				With("now", strconv.FormatInt(o.now, 10)).
				With("next_claimable_at", strconv.FormatInt(ob.NextClaimableAt, 10))
		}

		bal, err := o.custodian.Balance(o.ctx, cfg.Treasury, ob.Currency)
		if err != nil {
			return err
		}
		if bal < ob.Amount {
			return treasuryShortfall(dao.ErrInsufficientFunds, ob.Amount, bal)
		}

		next, err := addTime(ob.NextClaimableAt, ob.IntervalSeconds, "next_claimable_at")
		if err != nil {
			return err
		}

		err = o.custodian.Transfer(o.ctx, ob.Currency, cfg.Treasury, claimant, ob.Amount)
		if err != nil {
			return treasuryShortfall(err, ob.Amount, bal)
		}

		var fee uint64
		if e.fees.enabled() {
			fee = e.fees.Amount
			err = o.custodian.Transfer(o.ctx, dao.AssetNative, claimant, e.fees.Recipient, fee)
			if err != nil {
				return fundsShortfall(err, claimant)
			}
		}

		ob.NextClaimableAt = next
		if err := o.tx.SaveObligation(o.ctx, &ob); err != nil {
			return err
		}

		o.emit(daoID, dao.EventPaymentClaimed, map[string]any{
			"recipient":         string(claimant),
			"amount":            ob.Amount,
			"currency":          string(ob.Currency),
			"fee":               fee,
			"fee_recipient":     string(e.fees.Recipient),
			"next_claimable_at": ob.NextClaimableAt,
		})
		out = ob
		return nil
	})
	return out, err
}
