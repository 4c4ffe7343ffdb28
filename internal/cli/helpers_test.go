package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const councilGenesis = `id: council
authority: root
treasury: vault
governance_token: GOV
stake_vault: stakes
signers: [A, B, C]
approval_threshold: 2
vote_duration: 60
pass_percentage: 51
`

const withdrawArgs = `{"id":1,"path":"multisig","title":"Pay vendor","action":{"kind":"withdraw_treasury","params":{"amount":200,"recipient":"vendor"}}}`

// testEnv is a database in a temp dir shared by successive commands.
type testEnv struct {
	t    *testing.T
	dir  string
	opts *RootOptions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		t:    t,
		dir:  dir,
		opts: &RootOptions{Format: "text", Database: filepath.Join(dir, "treasury.db")},
	}
}

func (e *testEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes cmd with args and returns stdout.
func (e *testEnv) run(cmd *cobra.Command, args ...string) (string, error) {
	e.t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// must runs cmd and fails the test on error.
func (e *testEnv) must(cmd *cobra.Command, args ...string) string {
	e.t.Helper()
	out, err := e.run(cmd, args...)
	require.NoError(e.t, err, out)
	return out
}

// council creates the council DAO with a funded treasury.
func (e *testEnv) council() {
	e.t.Helper()
	e.must(NewInitCommand(e.opts), e.write("council.yaml", councilGenesis))
	e.must(NewFundCommand(e.opts), "vault", "SOL", "500")
}

func (e *testEnv) invoke(op, caller, args string) (string, error) {
	e.t.Helper()
	return e.run(NewInvokeCommand(e.opts), op, "--dao", "council", "--as", caller, "--args", args)
}

// executeWithdrawal proposes and passes the 200 SOL withdrawal.
func (e *testEnv) executeWithdrawal() {
	e.t.Helper()
	for _, step := range []struct{ op, caller, args string }{
		{"propose", "A", withdrawArgs},
		{"approve", "A", `{"proposal":1}`},
		{"approve", "B", `{"proposal":1}`},
	} {
		out, err := e.invoke(step.op, step.caller, step.args)
		require.NoError(e.t, err, out)
	}
}
