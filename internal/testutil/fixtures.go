package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// Genesis is the start time most tests run at.
const Genesis int64 = 1_700_000_000

// Well-known identities of the fixture DAO.
const (
	Authority  dao.Identity = "authority"
	Treasury   dao.Identity = "treasury"
	StakeVault dao.Identity = "stake-vault"
	FeeSink    dao.Identity = "fee-sink"

	GovToken dao.Asset = "GOV"
)

// OpenStore opens a fresh file-backed store in t's temp dir and closes it
// when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "treasury.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// DaoConfig returns a valid configuration for id with the given signers
// and threshold: one-day votes, quorum 2, 60% to pass, 10 tokens to
// participate.
func DaoConfig(id string, threshold uint8, signers ...dao.Identity) dao.Config {
	return dao.Config{
		ID:                    id,
		Authority:             Authority,
		Treasury:              Treasury,
		GovernanceToken:       GovToken,
		StakeVault:            StakeVault,
		Signers:               signers,
		ApprovalThreshold:     threshold,
		VoteDuration:          86_400,
		Quorum:                2,
		PassPercentage:        60,
		MinStakeToParticipate: 10,
	}
}
