package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// Account ledger backing the SQLite custodian. Balances are uint64 and
// never negative; Debit refuses to overdraw.

// Balance returns the balance of (owner, asset). Missing rows read as 0.
func (t *Tx) Balance(ctx context.Context, owner, asset string) (uint64, error) {
	return balance(ctx, t.tx, owner, asset)
}

// Credit adds amount to (owner, asset), creating the row if needed.
func (t *Tx) Credit(ctx context.Context, owner, asset string, amount uint64) error {
	return credit(ctx, t.tx, owner, asset, amount)
}

// Debit subtracts amount from (owner, asset). Returns
// ErrInsufficientBalance when the balance cannot cover it.
func (t *Tx) Debit(ctx context.Context, owner, asset string, amount uint64) error {
	return debit(ctx, t.tx, owner, asset, amount)
}

// Fund credits an account outside any governance operation. Used by the
// operator CLI and tests to seed balances.
func (s *Store) Fund(ctx context.Context, owner, asset string, amount uint64) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.Credit(ctx, owner, asset, amount)
	})
}

// AccountBalance reads a balance outside any governance operation.
func (s *Store) AccountBalance(ctx context.Context, owner, asset string) (uint64, error) {
	var bal uint64
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		bal, err = tx.Balance(ctx, owner, asset)
		return err
	})
	return bal, err
}

// execer is the subset of *sql.Tx the ledger helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balance(ctx context.Context, q execer, owner, asset string) (uint64, error) {
	var bal int64
	err := q.QueryRowContext(ctx, `
		SELECT balance FROM accounts WHERE owner = ? AND asset = ?
	`, owner, asset).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance %s/%s: %w", owner, asset, err)
	}
	return u64(bal), nil
}

func credit(ctx context.Context, q execer, owner, asset string, amount uint64) error {
	bal, err := balance(ctx, q, owner, asset)
	if err != nil {
		return err
	}
	if amount > math.MaxUint64-bal {
		return fmt.Errorf("credit %s/%s: balance overflow", owner, asset)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO accounts (owner, asset, balance) VALUES (?, ?, ?)
		ON CONFLICT(owner, asset) DO UPDATE SET balance = excluded.balance
	`, owner, asset, i64(bal+amount))
	if err != nil {
		return fmt.Errorf("credit %s/%s: %w", owner, asset, err)
	}
	return nil
}

func debit(ctx context.Context, q execer, owner, asset string, amount uint64) error {
	bal, err := balance(ctx, q, owner, asset)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("debit %s/%s: have %d, need %d: %w", owner, asset, bal, amount, ErrInsufficientBalance)
	}
	_, err = q.ExecContext(ctx, `
		UPDATE accounts SET balance = ? WHERE owner = ? AND asset = ?
	`, i64(bal-amount), owner, asset)
	if err != nil {
		return fmt.Errorf("debit %s/%s: %w", owner, asset, err)
	}
	return nil
}
