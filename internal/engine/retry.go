package engine

import (
	"github.com/roach88/treasury/internal/store"
)

// withRetry runs attempt until it succeeds, fails with a non-conflict
// error, or has been retried maxRetries times after conflicts.
//
// Attempts are numbered from 1. Only store.IsConflict errors are
// retried: governance rejections are deterministic for a given state, so
// repeating them cannot help.
func withRetry(name string, maxRetries int, attempt func(n int) error) error {
	var err error
	for n := 1; n <= maxRetries+1; n++ {
		err = attempt(n)
		if err == nil || !store.IsConflict(err) {
			return err
		}
	}
	return &RetriesExhaustedError{Op: name, Attempts: maxRetries + 1, Err: err}
}
