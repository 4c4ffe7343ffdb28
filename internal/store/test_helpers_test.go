package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/treasury/internal/dao"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDao returns a minimal valid configuration.
func createTestDao(id string) dao.Config {
	return dao.Config{
		ID:                id,
		Authority:         "authority",
		Treasury:          "treasury",
		GovernanceToken:   "GOV",
		StakeVault:        "vault",
		Signers:           []dao.Identity{"A", "B", "C"},
		ApprovalThreshold: 2,
		VoteDuration:      3600,
		Quorum:            1,
		PassPercentage:    50,
		CreatedAt:         1000,
	}
}

// seedDao inserts a DAO and fails the test on error.
func seedDao(t *testing.T, s *Store, id string) dao.Config {
	t.Helper()
	ctx := context.Background()
	cfg := createTestDao(id)
	if err := s.Update(ctx, func(tx *Tx) error {
		return tx.InsertDao(ctx, &cfg)
	}); err != nil {
		t.Fatalf("InsertDao() failed: %v", err)
	}
	return cfg
}
