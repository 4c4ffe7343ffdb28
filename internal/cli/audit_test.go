package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/store"
)

// tamper rewrites stored state behind the engine's back.
func (e *testEnv) tamper(query string, args ...any) {
	e.t.Helper()
	ctx := context.Background()
	st, err := store.Open(e.opts.Database)
	require.NoError(e.t, err)
	defer st.Close()
	require.NoError(e.t, st.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.SQL().ExecContext(ctx, query, args...)
		return err
	}))
}

func TestAuditCommand_Clean(t *testing.T) {
	env := newTestEnv(t)
	env.council()
	env.executeWithdrawal()

	assert.Equal(t, "✓ council\n", env.must(NewAuditCommand(env.opts)))
}

func TestAuditCommand_NoDaos(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "No DAOs found.\n", env.must(NewAuditCommand(env.opts)))
}

func TestAuditCommand_DetectsRewrittenEvent(t *testing.T) {
	env := newTestEnv(t)
	env.council()
	env.executeWithdrawal()
	env.tamper(`UPDATE events SET payload = ? WHERE seq = 3`,
		`{"approvals":2,"proposal_id":1,"signer":"C","threshold":2}`)

	out, err := env.run(NewAuditCommand(env.opts), "council")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ council")
	assert.Contains(t, out, "content hash")
}

func TestAuditCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.council()
	env.opts.Format = "json"
	env.tamper(`UPDATE daos SET total_staked = 9 WHERE id = ?`, "council")

	out, err := env.run(NewAuditCommand(env.opts))
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   AuditResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeAuditFailed, resp.Error.Code)
	assert.False(t, resp.Data.Clean)
	require.Len(t, resp.Data.Reports, 1)
	assert.NotEmpty(t, resp.Data.Reports[0].Violations)
}

func TestAuditCommand_UnknownDao(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(NewAuditCommand(env.opts), "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DaoNotFound]")
}
