// Package custody defines the fund-custody contract the engine moves
// money through, plus two implementations: an in-memory custodian and a
// ledger custodian backed by the store's accounts table.
//
// The engine never assumes a custodian is transactional. Custodians that
// can join a store transaction implement Binder; anything else is wrapped
// in a Journal so completed transfers can be reversed if the surrounding
// operation fails.
package custody

import (
	"context"
	"errors"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// ErrInsufficientFunds is returned by Transfer when the source cannot
// cover the amount. It matches dao.ErrInsufficientFunds under errors.Is.
var ErrInsufficientFunds = dao.ErrInsufficientFunds

// Custodian holds balances and moves them atomically per call.
type Custodian interface {
	Balance(ctx context.Context, owner dao.Identity, asset dao.Asset) (uint64, error)
	Transfer(ctx context.Context, asset dao.Asset, from, to dao.Identity, amount uint64) error
}

// Binder is implemented by custodians whose transfers can commit or roll
// back with a store transaction.
type Binder interface {
	Bind(tx *store.Tx) Custodian
}

// IsInsufficientFunds reports whether err is a custodian funds shortfall.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, store.ErrInsufficientBalance)
}
