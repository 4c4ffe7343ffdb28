package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/config"
	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/engine"
	"github.com/roach88/treasury/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // overrides the database setting when set
	ConfigFile string

	settings *config.Settings
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the treasury CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "treasury",
		Short: "Treasury governance engine",
		Long: `Govern shared treasuries through multisig approval or stake-weighted votes.

Proposals carry one action (withdraw, signer-set change or recurring
payment) that runs exactly once when its authorization path passes.
State lives in a SQLite database; settings come from treasury.yaml,
TREASURY_* environment variables and flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from settings)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "settings file (default ./treasury.yaml if present)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewFundCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Settings resolves and caches runtime settings. --db wins over the
// file and environment.
func (o *RootOptions) Settings() (config.Settings, error) {
	if o.settings != nil {
		return *o.settings, nil
	}
	v, err := config.NewViper(o.ConfigFile)
	if err != nil {
		return config.Settings{}, err
	}
	if o.Database != "" {
		v.Set(config.KeyDatabase, o.Database)
	}
	if o.Verbose {
		v.Set(config.KeyLogLevel, "debug")
	}
	s, err := config.Load(v)
	if err != nil {
		return config.Settings{}, err
	}
	o.settings = &s
	return s, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session is one command's view of the database. Events committed during
// the command are delivered to the log sink on Close.
type session struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	s, err := o.Settings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}

	st, err := store.Open(s.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), s.LogLevel)
	opts := append(s.EngineOptions(),
		engine.WithLogger(logger),
		engine.WithSink(engine.LogSink{Logger: logger}),
	)
	eng, err := engine.New(ctx, st, custody.NewLedger(st), opts...)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	logger.Debug("session opened", "database", s.Database, "fee_recipient", string(s.Fee.Recipient))
	return &session{store: st, engine: eng, logger: logger}, nil
}

func (s *session) Close() {
	if n := s.engine.DispatchPending(); n > 0 {
		s.logger.Debug("events delivered", "count", n)
	}
	s.engine.Stop()
	_ = s.store.Close()
}
