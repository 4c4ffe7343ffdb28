package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// RetriesExhaustedError is returned when an operation kept losing
// optimistic-concurrency races. It unwraps to the last conflict, so
// errors.Is(err, store.ErrConflict) holds.
type RetriesExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Unwrap returns the last conflict.
func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// IsRetriesExhausted reports whether err is a RetriesExhaustedError.
// Uses errors.As to handle wrapped errors.
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}

// daoLookup maps a missing DAO row to DaoNotFound.
func daoLookup(err error, daoID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return dao.ErrDaoNotFound.With("dao", daoID)
	}
	return err
}

// proposalLookup maps a missing proposal row to ProposalNotFound.
func proposalLookup(err error, daoID string, id uint64) error {
	if errors.Is(err, store.ErrNotFound) {
		return dao.ErrProposalNotFound.
			With("dao", daoID).
			With("proposal", strconv.FormatUint(id, 10))
	}
	return err
}

// treasuryShortfall maps a custodian funds error on a treasury outflow to
// InsufficientTreasuryBalance.
func treasuryShortfall(err error, need, have uint64) error {
	if custody.IsInsufficientFunds(err) {
		return dao.ErrInsufficientTreasuryBalance.
			With("need", strconv.FormatUint(need, 10)).
			With("have", strconv.FormatUint(have, 10))
	}
	return err
}

// fundsShortfall maps any custodian funds error to InsufficientFunds,
// keeping a *dao.Error already in the chain.
func fundsShortfall(err error, owner dao.Identity) error {
	if err == nil {
		return nil
	}
	if custody.IsInsufficientFunds(err) && dao.CodeOf(err) == "" {
		return dao.ErrInsufficientFunds.With("owner", string(owner))
	}
	return err
}

// insertRace maps a duplicate key on a row the attempt just read as
// absent to a conflict, so the operation retries against the winner.
func insertRace(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

func overflow(what string) error {
	return dao.ErrArithmeticOverflow.With("field", what)
}

// addU64 is an overflow-checked add.
func addU64(a, b uint64, what string) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, overflow(what)
	}
	return sum, nil
}

// addTime is an overflow-checked add of a positive duration to a unix
// time.
func addTime(t, d int64, what string) (int64, error) {
	if d > 0 && t > (1<<63-1)-d {
		return 0, overflow(what)
	}
	return t + d, nil
}
