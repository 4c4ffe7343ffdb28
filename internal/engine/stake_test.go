package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/testutil"
)

// requireStakeSum checks that stake records add up to TotalStaked.
func (f *fixture) requireStakeSum(daoID string) {
	f.t.Helper()
	cfg, err := f.eng.Dao(f.ctx, daoID)
	require.NoError(f.t, err)
	stakes, err := f.eng.Stakes(f.ctx, daoID)
	require.NoError(f.t, err)
	var sum uint64
	for _, s := range stakes {
		sum += s.StakedAmount
	}
	require.Equal(f.t, cfg.TotalStaked, sum, "sum of stakes must equal total_staked")
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	f.multisigDao()
	f.fund("alice", testutil.GovToken, 100)

	rec, err := f.eng.Deposit(f.ctx, "ms", "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), rec.StakedAmount)

	rec, err = f.eng.Deposit(f.ctx, "ms", "alice", 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), rec.StakedAmount)

	assert.Equal(t, uint64(50), f.balance("alice", testutil.GovToken))
	assert.Equal(t, uint64(50), f.balance(testutil.StakeVault, testutil.GovToken))
	f.requireStakeSum("ms")

	evs := f.events("ms")
	last := evs[len(evs)-1]
	assert.Equal(t, dao.EventTokensStaked, last.Kind)
	assert.Equal(t, json.Number("50"), last.Payload["total_staked"])
}

func TestDeposit_Validation(t *testing.T) {
	f := newFixture(t)
	f.multisigDao()

	_, err := f.eng.Deposit(f.ctx, "ms", "alice", 0)
	assert.ErrorIs(t, err, dao.ErrInvalidAmount)

	_, err = f.eng.Deposit(f.ctx, "ms", "", 5)
	assert.ErrorIs(t, err, dao.ErrInvalidIdentity)

	_, err = f.eng.Deposit(f.ctx, "missing", "alice", 5)
	assert.ErrorIs(t, err, dao.ErrDaoNotFound)
}

func TestDeposit_InsufficientFundsRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.multisigDao()
	f.fund("alice", testutil.GovToken, 5)

	_, err := f.eng.Deposit(f.ctx, "ms", "alice", 6)
	assert.ErrorIs(t, err, dao.ErrInsufficientFunds)
	assert.Equal(t, dao.ClassResource, dao.ClassOf(err))

	rec, err := f.eng.Stake(f.ctx, "ms", "alice")
	require.NoError(t, err)
	assert.Zero(t, rec.StakedAmount)
	assert.Equal(t, uint64(5), f.balance("alice", testutil.GovToken))
	f.requireStakeSum("ms")
}

func TestDeposit_CustodianFailureRecordsNothing(t *testing.T) {
	f := newMemoryFixture(t)
	f.multisigDao()
	f.fund("alice", testutil.GovToken, 100)
	offline := errors.New("custodian offline")

	f.memory.FailNextTransfer(offline)
	_, err := f.eng.Deposit(f.ctx, "ms", "alice", 10)
	assert.ErrorIs(t, err, offline)

	rec, err := f.eng.Stake(f.ctx, "ms", "alice")
	require.NoError(t, err)
	assert.Zero(t, rec.StakedAmount)
	f.requireStakeSum("ms")
}

func TestDeposit_TotalOverflow(t *testing.T) {
	f := newFixture(t)
	f.multisigDao()
	f.fund("whale", testutil.GovToken, math.MaxUint64)
	f.fund("minnow", testutil.GovToken, 1)

	_, err := f.eng.Deposit(f.ctx, "ms", "whale", math.MaxUint64)
	require.NoError(t, err)

	_, err = f.eng.Deposit(f.ctx, "ms", "minnow", 1)
	assert.ErrorIs(t, err, dao.ErrArithmeticOverflow)
	assert.Equal(t, uint64(1), f.balance("minnow", testutil.GovToken))
	f.requireStakeSum("ms")
}

func TestWithdrawAll(t *testing.T) {
	f := newFixture(t)
	f.multisigDao()
	f.fund("alice", testutil.GovToken, 100)
	f.fund("bob", testutil.GovToken, 100)

	_, err := f.eng.Deposit(f.ctx, "ms", "alice", 40)
	require.NoError(t, err)
	_, err = f.eng.Deposit(f.ctx, "ms", "bob", 25)
	require.NoError(t, err)
	f.requireStakeSum("ms")

	released, err := f.eng.WithdrawAll(f.ctx, "ms", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), released)
	assert.Equal(t, uint64(100), f.balance("alice", testutil.GovToken))
	assert.Equal(t, uint64(25), f.balance(testutil.StakeVault, testutil.GovToken))
	f.requireStakeSum("ms")

	stakes, err := f.eng.Stakes(f.ctx, "ms")
	require.NoError(t, err)
	require.Len(t, stakes, 1, "withdrawn record is deleted")
	assert.Equal(t, dao.Identity("bob"), stakes[0].Owner)

	_, err = f.eng.WithdrawAll(f.ctx, "ms", "alice")
	assert.ErrorIs(t, err, dao.ErrNoStakeFound)
	_, err = f.eng.WithdrawAll(f.ctx, "ms", "carol")
	assert.ErrorIs(t, err, dao.ErrNoStakeFound)

	assert.Equal(t, dao.EventTokensUnstaked, f.kinds("ms")[3])
	f.requireAuditClean("ms")
}

func TestStakeSumHoldsAcrossInterleavedOperations(t *testing.T) {
	f := newMemoryFixture(t)
	f.multisigDao()
	owners := []dao.Identity{"p1", "p2", "p3"}
	for _, o := range owners {
		f.fund(o, testutil.GovToken, 1_000)
	}

	for round := uint64(1); round <= 4; round++ {
		for i, o := range owners {
			_, err := f.eng.Deposit(f.ctx, "ms", o, round*uint64(i+1))
			require.NoError(t, err)
			f.requireStakeSum("ms")
		}
		_, err := f.eng.WithdrawAll(f.ctx, "ms", owners[round%3])
		require.NoError(t, err)
		f.requireStakeSum("ms")
	}
	f.requireAuditClean("ms")
}
