package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                  `json:"valid"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ContractsDir string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate CUE contracts without generating code",
		Long: `Validate CUE contract definitions without generating code.

Compiles every contract in the contracts directory and reports all
findings with stable error codes. Faster than gen for development
feedback.

Examples:
  understudy validate --contracts ./contracts
  understudy validate --contracts ./contracts --format json`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ContractsDir, "contracts", "", "directory with CUE contract definitions (required)")
	_ = cmd.MarkFlagRequired("contracts")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Fail-fast mode surfaces structural problems (missing directory,
	// unbuildable CUE) before contract-level diagnostics run.
	loadResult, loadErrors := compiler.LoadDir(opts.ContractsDir, compiler.LoadModeFailFast)

	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, compiler.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, opts.ContractsDir)
	for _, c := range loadResult.Contracts {
		formatter.VerboseLog("Checking contract: %s", c.Name())
	}

	// Diagnose re-walks every contract in collect-all fashion, so a
	// fail-fast load error above still ends up reported here.
	diags := compiler.Diagnose(loadResult.CUEValue)
	if len(diags) > 0 {
		return outputDiagnostics(formatter, diags)
	}

	return outputValidateSuccess(formatter)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All contracts valid")
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputDiagnostics outputs contract findings.
func outputDiagnostics(formatter *OutputFormatter, diags []compiler.Diagnostic) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:       false,
			Diagnostics: diags,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    diags[0].Code,
				Message: diags[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation findings = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(diags)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, d := range diags {
		if d.Contract != "" {
			fmt.Fprintln(formatter.Writer, d.Contract)
		}
		if d.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", d.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", d.Code, d.Field, d.Message)
	}

	// Validation findings = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(diags)))
}

// ValidateContractsDir validates all contracts in a directory.
// This is a helper function for external callers.
func ValidateContractsDir(contractsDir string) ([]compiler.Diagnostic, error) {
	loadResult, loadErrors := compiler.LoadDir(contractsDir, compiler.LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	return compiler.Diagnose(loadResult.CUEValue), nil
}
