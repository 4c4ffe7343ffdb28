package engine

import (
	"errors"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// actionExecutor applies an approved action inside the executing
// transaction. It implements dao.ActionVisitor, so adding an action kind
// fails to compile until it is handled here.
type actionExecutor struct {
	op  *op
	cfg *dao.Config

	// configChanged tells the caller to save cfg.
	configChanged bool
}

var _ dao.ActionVisitor = (*actionExecutor)(nil)

func (x *actionExecutor) VisitWithdrawTreasury(a dao.WithdrawTreasury) error {
	o := x.op
	bal, err := o.custodian.Balance(o.ctx, x.cfg.Treasury, dao.AssetNative)
	if err != nil {
		return err
	}
	if bal < a.Amount {
		return treasuryShortfall(dao.ErrInsufficientFunds, a.Amount, bal)
	}
	err = o.custodian.Transfer(o.ctx, dao.AssetNative, x.cfg.Treasury, a.Recipient, a.Amount)
	if err != nil {
		return treasuryShortfall(err, a.Amount, bal)
	}
	return nil
}

func (x *actionExecutor) VisitUpdateDaoConfig(a dao.UpdateDaoConfig) error {
	if err := x.cfg.ApplyOp(a.Op); err != nil {
		return err
	}
	x.configChanged = true
	return nil
}

// VisitAddRecurringPayment creates the recipient's obligation, or
// replaces an existing one's terms and re-arms it from now.
func (x *actionExecutor) VisitAddRecurringPayment(a dao.AddRecurringPayment) error {
	o := x.op
	next, err := addTime(o.now, a.Interval, "next_claimable_at")
	if err != nil {
		return err
	}

	ob, err := o.tx.GetObligation(o.ctx, x.cfg.ID, a.Recipient)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ob = dao.Obligation{
			DaoID:           x.cfg.ID,
			Recipient:       a.Recipient,
			Amount:          a.Amount,
			Currency:        a.Currency,
			IntervalSeconds: a.Interval,
			NextClaimableAt: next,
		}
		return insertRace(o.tx.InsertObligation(o.ctx, &ob))
	case err != nil:
		return err
	}

	ob.Amount = a.Amount
	ob.Currency = a.Currency
	ob.IntervalSeconds = a.Interval
	ob.NextClaimableAt = next
	return o.tx.SaveObligation(o.ctx, &ob)
}
