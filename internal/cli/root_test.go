package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treasury/internal/engine"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "treasury", cmd.Use)
	assert.Contains(t, cmd.Long, "multisig")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "fund", "invoke", "show", "trace", "audit", "validate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"db", "config"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestInvokeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	invokeCmd, _, err := cmd.Find([]string{"invoke"})
	require.NoError(t, err)

	argsFlag := invokeCmd.Flags().Lookup("args")
	require.NotNil(t, argsFlag)
	assert.Equal(t, "{}", argsFlag.DefValue)

	require.NotNil(t, invokeCmd.Flags().Lookup("as"))
	require.NotNil(t, invokeCmd.Flags().Lookup("dao"))

	for _, op := range engine.Ops {
		assert.Contains(t, invokeCmd.Long, op)
	}
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	require.NotNil(t, testCmd.Flags().Lookup("filter"))
	require.NotNil(t, testCmd.Flags().Lookup("golden"))
}

func TestTraceCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	traceCmd, _, err := cmd.Find([]string{"trace"})
	require.NoError(t, err)

	afterFlag := traceCmd.Flags().Lookup("after")
	require.NotNil(t, afterFlag)
	assert.Equal(t, "0", afterFlag.DefValue)

	require.NotNil(t, traceCmd.Flags().Lookup("kind"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "council.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootOptions_SettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte("database: from-file.db\nfee:\n  recipient: sink\n  amount: 7\n"), 0o644))

	opts := &RootOptions{ConfigFile: file}
	s, err := opts.Settings()
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", s.Database)
	assert.Equal(t, "sink", string(s.Fee.Recipient))
	assert.Equal(t, uint64(7), s.Fee.Amount)

	opts = &RootOptions{ConfigFile: file, Database: "flag.db", Verbose: true}
	s, err = opts.Settings()
	require.NoError(t, err)
	assert.Equal(t, "flag.db", s.Database)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestRootOptions_MissingConfigFile(t *testing.T) {
	env := newTestEnv(t)
	env.opts.ConfigFile = filepath.Join(env.dir, "missing.yaml")

	_, err := env.run(NewShowCommand(env.opts), "council")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestRootCommand_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	genesis := env.write("council.yaml", councilGenesis)
	db := env.opts.Database

	steps := [][]string{
		{"--db", db, "init", genesis},
		{"--db", db, "fund", "vault", "SOL", "500"},
		{"--db", db, "invoke", "propose", "--dao", "council", "--as", "A", "--args", withdrawArgs},
		{"--db", db, "invoke", "approve", "--dao", "council", "--as", "A", "--args", `{"proposal":1}`},
		{"--db", db, "invoke", "approve", "--dao", "council", "--as", "B", "--args", `{"proposal":1}`},
		{"--db", db, "audit"},
	}
	for _, args := range steps {
		out, err := env.run(NewRootCommand(), args...)
		require.NoError(t, err, "%v: %s", args, out)
	}

	out, err := env.run(NewRootCommand(), "--db", db, "invoke", "approve", "--dao", "council", "--as", "C", "--args", `{"proposal":1}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ProposalAlreadyExecuted]")
}
