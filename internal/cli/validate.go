package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/treasury/internal/config"
	"github.com/roach88/treasury/internal/dao"
)

// ValidationError is one problem found in a genesis file.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <genesis.yaml>...",
		Short: "Validate genesis files without touching a database",
		Long: `Validate DAO genesis files without creating anything.

Each file is checked against the genesis schema, then against the same
cross-field rules DAO creation enforces: threshold within the signer
count, unique signers, at most five signers.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var errs []ValidationError
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		if verr := validateGenesisFile(path); verr != nil {
			errs = append(errs, *verr)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(paths), errs)
	}
	return outputValidateSuccess(formatter, len(paths))
}

// validateGenesisFile returns nil when path describes a DAO that could be
// created.
func validateGenesisFile(path string) *ValidationError {
	genesis, err := config.LoadGenesis(path)
	if err != nil {
		var gerr *config.GenesisError
		if errors.As(err, &gerr) {
			return &ValidationError{
				File:    path,
				Code:    ErrCodeInvalidGenesis,
				Message: gerr.Message,
				Line:    getLineFromPos(gerr),
			}
		}
		return &ValidationError{File: path, Code: ErrCodeNotFound, Message: err.Error()}
	}

	cfg := genesis.Config()
	if len(cfg.Signers) == 0 {
		cfg.Signers = []dao.Identity{cfg.Authority}
	}
	if err := cfg.Validate(); err != nil {
		code := ErrCodeInvalidGenesis
		if c := dao.CodeOf(err); c != "" {
			code = string(c)
		}
		return &ValidationError{File: path, Code: code, Message: err.Error()}
	}
	return nil
}

// getLineFromPos extracts the line number of a schema error, or 0.
func getLineFromPos(gerr *config.GenesisError) int {
	if gerr.Pos.IsValid() {
		return gerr.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d genesis file(s) valid\n", files)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, files int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Files:  files,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
