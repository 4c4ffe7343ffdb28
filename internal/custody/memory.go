package custody

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/roach88/treasury/internal/dao"
)

type accountKey struct {
	owner dao.Identity
	asset dao.Asset
}

// Memory is a non-transactional in-process custodian. It is safe for
// concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[accountKey]uint64

	// failNext, when set, makes the next Transfer fail with this error.
	failNext error
}

// NewMemory returns an empty custodian.
func NewMemory() *Memory {
	return &Memory{balances: make(map[accountKey]uint64)}
}

// Fund credits owner out of thin air. Used to seed balances.
func (m *Memory) Fund(owner dao.Identity, asset dao.Asset, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountKey{owner, asset}] += amount
}

// FailNextTransfer makes the next Transfer return err without moving
// funds. Used to exercise compensation paths.
func (m *Memory) FailNextTransfer(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Balance implements Custodian.
func (m *Memory) Balance(_ context.Context, owner dao.Identity, asset dao.Asset) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountKey{owner, asset}], nil
}

// Transfer implements Custodian.
func (m *Memory) Transfer(_ context.Context, asset dao.Asset, from, to dao.Identity, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}

	src := accountKey{from, asset}
	dst := accountKey{to, asset}
	if m.balances[src] < amount {
		return ErrInsufficientFunds.
			With("owner", string(from)).
			With("needed", strconv.FormatUint(amount, 10)).
			With("available", strconv.FormatUint(m.balances[src], 10))
	}
	if from == to {
		return nil
	}
	if m.balances[dst] > math.MaxUint64-amount {
		return dao.ErrArithmeticOverflow.With("owner", string(to))
	}
	m.balances[src] -= amount
	m.balances[dst] += amount
	return nil
}
