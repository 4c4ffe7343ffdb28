package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/dao"
)

func TestShowCommand_Text(t *testing.T) {
	env := newTestEnv(t)
	env.council()
	env.executeWithdrawal()

	// Headers and footers are upper-cased by the table style.
	out := strings.ToLower(env.must(NewShowCommand(env.opts), "council"))
	for _, want := range []string{
		"dao council",
		"a, b, c",
		"2 of 3",
		"proposals",
		"withdraw 200 to vendor",
		"executed",
		"2 approvals",
		"stakes",
		"recurring payments",
		"(none)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestShowCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.council()
	_, err := env.invoke("propose", "A", withdrawArgs)
	require.NoError(t, err)
	env.opts.Format = "json"

	out := env.must(NewShowCommand(env.opts), "council")

	var resp struct {
		Status string     `json:"status"`
		Data   ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"A", "B", "C"}, resp.Data.Dao.Signers)

	require.Len(t, resp.Data.Proposals, 1)
	p := resp.Data.Proposals[0]
	assert.Equal(t, "approving", p.State)
	assert.Equal(t, "multisig", p.Path)
	assert.JSONEq(t, `{"kind":"withdraw_treasury","params":{"amount":200,"recipient":"vendor"}}`, string(p.Action))
	assert.Empty(t, resp.Data.Stakes)
	assert.Empty(t, resp.Data.Obligations)
}

func TestShowCommand_UnknownDao(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(NewShowCommand(env.opts), "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DaoNotFound]")
}

func TestDescribeAction(t *testing.T) {
	tests := []struct {
		action dao.Action
		want   string
	}{
		{dao.WithdrawTreasury{Amount: 400, Recipient: "vendor"}, "withdraw 400 to vendor"},
		{dao.AddRecurringPayment{Recipient: "dev", Amount: 100, Currency: "SOL", Interval: 86400}, "pay dev 100 SOL every 86400s"},
		{dao.UpdateDaoConfig{Op: dao.AddSigner{Signer: "E"}}, "add signer E"},
		{dao.UpdateDaoConfig{Op: dao.RemoveSigner{Signer: "A"}}, "remove signer A"},
		{dao.UpdateDaoConfig{Op: dao.ChangeThreshold{Threshold: 3}}, "change threshold to 3"},
		{nil, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeAction(tt.action))
	}
}
