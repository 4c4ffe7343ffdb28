package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/treasury/internal/dao"
)

// Transfer is one completed movement recorded by a Journal.
type Transfer struct {
	Asset  dao.Asset
	From   dao.Identity
	To     dao.Identity
	Amount uint64
}

// Journal wraps a non-transactional custodian and records every
// successful transfer so the enclosing operation can undo them if a later
// step or the commit fails.
type Journal struct {
	inner Custodian

	mu        sync.Mutex
	transfers []Transfer
}

// NewJournal wraps inner.
func NewJournal(inner Custodian) *Journal {
	return &Journal{inner: inner}
}

// Balance implements Custodian.
func (j *Journal) Balance(ctx context.Context, owner dao.Identity, asset dao.Asset) (uint64, error) {
	return j.inner.Balance(ctx, owner, asset)
}

// Transfer implements Custodian and records the transfer on success.
func (j *Journal) Transfer(ctx context.Context, asset dao.Asset, from, to dao.Identity, amount uint64) error {
	if err := j.inner.Transfer(ctx, asset, from, to, amount); err != nil {
		return err
	}
	j.mu.Lock()
	j.transfers = append(j.transfers, Transfer{Asset: asset, From: from, To: to, Amount: amount})
	j.mu.Unlock()
	return nil
}

// Transfers returns a copy of the recorded transfers in issue order.
func (j *Journal) Transfers() []Transfer {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Transfer(nil), j.transfers...)
}

// Compensate reverses recorded transfers in LIFO order and clears the
// journal. Every reversal is attempted; failures are joined.
func (j *Journal) Compensate(ctx context.Context) error {
	j.mu.Lock()
	transfers := j.transfers
	j.transfers = nil
	j.mu.Unlock()

	var errs []error
	for i := len(transfers) - 1; i >= 0; i-- {
		t := transfers[i]
		if err := j.inner.Transfer(ctx, t.Asset, t.To, t.From, t.Amount); err != nil {
			errs = append(errs, fmt.Errorf("reverse %d %s %s->%s: %w", t.Amount, t.Asset, t.From, t.To, err))
		}
	}
	return errors.Join(errs...)
}

// Reset forgets recorded transfers after a successful commit.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.transfers = nil
	j.mu.Unlock()
}
