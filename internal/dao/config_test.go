package dao

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ID:                "dao-1",
		Authority:         "authority",
		Treasury:          "treasury",
		GovernanceToken:   "GOV",
		StakeVault:        "vault",
		Signers:           []Identity{"A", "B", "C", "D"},
		ApprovalThreshold: 3,
		VoteDuration:      3600,
		Quorum:            2,
		PassPercentage:    60,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   Code
	}{
		{"valid", func(*Config) {}, ""},
		{"zero threshold", func(c *Config) { c.ApprovalThreshold = 0 }, "InvalidThreshold"},
		{"threshold above signers", func(c *Config) { c.ApprovalThreshold = 5 }, "InvalidNewThreshold"},
		{"zero vote duration", func(c *Config) { c.VoteDuration = 0 }, "InvalidVoteDuration"},
		{"pass percentage above 100", func(c *Config) { c.PassPercentage = 101 }, "InvalidPassPercentage"},
		{"too many signers", func(c *Config) { c.Signers = []Identity{"1", "2", "3", "4", "5", "6"} }, "TooManySigners"},
		{"duplicate signer", func(c *Config) { c.Signers = []Identity{"A", "A", "B"} }, "SignerAlreadyExists"},
		{"empty treasury", func(c *Config) { c.Treasury = "" }, "InvalidIdentity"},
		{"stake vault is treasury", func(c *Config) { c.StakeVault = c.Treasury }, "InvalidIdentity"},
		{"stake vault is authority", func(c *Config) { c.StakeVault = c.Authority }, "InvalidIdentity"},
		{"stake vault is a signer", func(c *Config) { c.StakeVault = c.Signers[0] }, "InvalidIdentity"},
		{"native governance token", func(c *Config) { c.GovernanceToken = AssetNative }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestConfigApplyOp(t *testing.T) {
	t.Run("add signer", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.ApplyOp(AddSigner{Signer: "E"}))
		assert.Equal(t, []Identity{"A", "B", "C", "D", "E"}, cfg.Signers)
	})

	t.Run("add stake vault as signer", func(t *testing.T) {
		cfg := validConfig()
		assert.ErrorIs(t, cfg.ApplyOp(AddSigner{Signer: cfg.StakeVault}), ErrInvalidIdentity)
		assert.Len(t, cfg.Signers, 4)
	})

	t.Run("add duplicate signer", func(t *testing.T) {
		cfg := validConfig()
		assert.ErrorIs(t, cfg.ApplyOp(AddSigner{Signer: "A"}), ErrSignerAlreadyExists)
	})

	t.Run("add beyond max", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.ApplyOp(AddSigner{Signer: "E"}))
		assert.ErrorIs(t, cfg.ApplyOp(AddSigner{Signer: "F"}), ErrTooManySigners)
		assert.Len(t, cfg.Signers, MaxSigners)
	})

	t.Run("remove signer", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.ApplyOp(RemoveSigner{Signer: "B"}))
		assert.Equal(t, []Identity{"A", "C", "D"}, cfg.Signers)
	})

	t.Run("remove unknown signer", func(t *testing.T) {
		cfg := validConfig()
		assert.ErrorIs(t, cfg.ApplyOp(RemoveSigner{Signer: "Z"}), ErrSignerNotFound)
	})

	t.Run("remove below threshold leaves config unchanged", func(t *testing.T) {
		cfg := validConfig()
		cfg.ApprovalThreshold = 4
		err := cfg.ApplyOp(RemoveSigner{Signer: "A"})
		assert.ErrorIs(t, err, ErrCannotRemoveSigner)
		assert.Len(t, cfg.Signers, 4)
	})

	t.Run("change threshold bounds", func(t *testing.T) {
		cfg := validConfig()
		assert.ErrorIs(t, cfg.ApplyOp(ChangeThreshold{Threshold: 0}), ErrInvalidNewThreshold)
		assert.ErrorIs(t, cfg.ApplyOp(ChangeThreshold{Threshold: 5}), ErrInvalidNewThreshold)
		require.NoError(t, cfg.ApplyOp(ChangeThreshold{Threshold: 4}))
		assert.Equal(t, uint8(4), cfg.ApprovalThreshold)
	})
}

func TestConfigCheckOpDoesNotMutate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.CheckOp(AddSigner{Signer: "E"}))
	assert.Len(t, cfg.Signers, 4)
}

func TestValidateAction(t *testing.T) {
	cfg := validConfig()
	tests := []struct {
		name   string
		action Action
		code   Code
	}{
		{"withdraw ok", WithdrawTreasury{Amount: 1, Recipient: "bob"}, ""},
		{"withdraw zero", WithdrawTreasury{Amount: 0, Recipient: "bob"}, "InvalidAmount"},
		{"withdraw to treasury", WithdrawTreasury{Amount: 1, Recipient: "treasury"}, "InvalidRecipient"},
		{"recurring ok", AddRecurringPayment{Recipient: "bob", Amount: 1, Currency: AssetNative, Interval: 60}, ""},
		{"recurring zero interval", AddRecurringPayment{Recipient: "bob", Amount: 1, Currency: AssetNative}, "InvalidPaymentInterval"},
		{"recurring wrong currency", AddRecurringPayment{Recipient: "bob", Amount: 1, Currency: "USDC", Interval: 60}, "InvalidCurrency"},
		{"recurring to treasury", AddRecurringPayment{Recipient: "treasury", Amount: 1, Currency: AssetNative, Interval: 60}, "InvalidRecipient"},
		{"add existing signer", UpdateDaoConfig{Op: AddSigner{Signer: "A"}}, "SignerAlreadyExists"},
		{"remove missing signer", UpdateDaoConfig{Op: RemoveSigner{Signer: "Z"}}, "SignerNotFound"},
		{"nil action", nil, "UnknownAction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(cfg, tt.action)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText(strings.Repeat("a", MaxTitleLength), strings.Repeat("b", MaxDescriptionLen)))
	assert.ErrorIs(t, ValidateText(strings.Repeat("a", MaxTitleLength+1), ""), ErrTitleTooLong)
	assert.ErrorIs(t, ValidateText("", strings.Repeat("b", MaxDescriptionLen+1)), ErrDescriptionTooLong)

	// Multi-byte runes count once each.
	assert.NoError(t, ValidateText(strings.Repeat("é", MaxTitleLength), ""))
}

func TestErrorDetailsAndMatching(t *testing.T) {
	err := ErrInsufficientTreasuryBalance.With("needed", "10").With("available", "5")
	assert.ErrorIs(t, err, ErrInsufficientTreasuryBalance)
	assert.NotErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, ClassResource, ClassOf(err))
	assert.Equal(t, "InsufficientTreasuryBalance: treasury does not have enough funds (available=5, needed=10)", err.Error())
	assert.Empty(t, ErrInsufficientTreasuryBalance.Details, "With must not mutate the sentinel")
}

func TestProposalState(t *testing.T) {
	p := Proposal{Path: PathStakeVote, EndTime: 100}
	assert.Equal(t, StateVoting, p.State(99))
	assert.Equal(t, StateClosed, p.State(100))

	p.Executed = true
	assert.Equal(t, StateExecuted, p.State(50))

	m := Proposal{Path: PathMultisig, Approvals: []Identity{"A"}}
	assert.Equal(t, StateApproving, m.State(0))
	assert.True(t, m.HasApproved("A"))
	assert.False(t, m.HasApproved("B"))
}

func TestParseEnums(t *testing.T) {
	p, err := ParsePath("stake_vote")
	require.NoError(t, err)
	assert.Equal(t, PathStakeVote, p)
	_, err = ParsePath("council")
	assert.ErrorIs(t, err, ErrUnknownPath)

	c, err := ParseVoteChoice("no")
	require.NoError(t, err)
	assert.Equal(t, VoteNo, c)
	_, err = ParseVoteChoice("abstain")
	assert.ErrorIs(t, err, ErrInvalidVoteChoice)
	assert.Equal(t, ClassValidation, ClassOf(err))
}
