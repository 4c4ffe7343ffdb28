package custody

import (
	"context"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// Ledger is a custodian backed by the store's accounts table. Bound to a
// store transaction, its transfers commit or roll back with the
// governance bookkeeping of the same operation.
type Ledger struct {
	store *store.Store
}

// NewLedger returns a ledger custodian over s.
func NewLedger(s *store.Store) *Ledger {
	return &Ledger{store: s}
}

// Bind implements Binder.
func (l *Ledger) Bind(tx *store.Tx) Custodian {
	return &boundLedger{tx: tx}
}

// Balance implements Custodian outside any operation.
func (l *Ledger) Balance(ctx context.Context, owner dao.Identity, asset dao.Asset) (uint64, error) {
	return l.store.AccountBalance(ctx, string(owner), string(asset))
}

// Transfer implements Custodian in its own transaction. Must not be called
// while another transaction on the same store is open: the store has a
// single connection.
func (l *Ledger) Transfer(ctx context.Context, asset dao.Asset, from, to dao.Identity, amount uint64) error {
	return l.store.Update(ctx, func(tx *store.Tx) error {
		return l.Bind(tx).Transfer(ctx, asset, from, to, amount)
	})
}

type boundLedger struct {
	tx *store.Tx
}

func (b *boundLedger) Balance(ctx context.Context, owner dao.Identity, asset dao.Asset) (uint64, error) {
	return b.tx.Balance(ctx, string(owner), string(asset))
}

func (b *boundLedger) Transfer(ctx context.Context, asset dao.Asset, from, to dao.Identity, amount uint64) error {
	if err := b.tx.Debit(ctx, string(from), string(asset), amount); err != nil {
		if IsInsufficientFunds(err) {
			return fmt.Errorf("%w: %v", ErrInsufficientFunds.With("owner", string(from)), err)
		}
		return err
	}
	if err := b.tx.Credit(ctx, string(to), string(asset), amount); err != nil {
		return err
	}
	return nil
}
