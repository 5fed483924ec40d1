package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/codegen"
	"github.com/roach88/understudy/internal/compiler"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	ContractsDir string
	OutDir       string
	Package      string
}

// GenResult holds the generation summary.
type GenResult struct {
	OutDir    string   `json:"out_dir"`
	Contracts []string `json:"contracts"`
	Files     []string `json:"files"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed doubles from CUE contracts",
		Long: `Generate typed test-double source files from CUE contract definitions.

The generator compiles every contract in the contracts directory and
writes one Go file per contract into the output directory. Each file
carries the contract constructor, a typed double struct, and one typed
method per operation.

Examples:
  understudy gen --contracts ./contracts --out ./doubles
  understudy gen --contracts ./contracts --out ./internal/mocks --package mocks`,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ContractsDir, "contracts", "", "directory with CUE contract definitions (required)")
	_ = cmd.MarkFlagRequired("contracts")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "output directory for generated files (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().StringVar(&opts.Package, "package", "doubles", "package name for generated files")

	return cmd
}

func runGen(opts *GenOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Use shared loader with collect-all mode
	loadResult, loadErrors := compiler.LoadDir(opts.ContractsDir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *compiler.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputGenError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputGenError(formatter, compiler.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, opts.ContractsDir)

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputGenErrors(formatter, loadErrors)
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return outputGenError(formatter, compiler.ErrCodeWriteFailed,
			fmt.Sprintf("creating output directory: %v", err), nil)
	}

	result := GenResult{OutDir: opts.OutDir}
	for _, c := range loadResult.Contracts {
		formatter.VerboseLog("Generating double for contract: %s", c.Name())

		code, err := codegen.Generate(c, codegen.Options{Package: opts.Package})
		if err != nil {
			return outputGenError(formatter, compiler.ErrCodeGeneric,
				fmt.Sprintf("generating %s: %v", c.Name(), err), nil)
		}

		name := codegen.FileName(c.Name())
		path := filepath.Join(opts.OutDir, name)
		if err := os.WriteFile(path, code, 0644); err != nil {
			return outputGenError(formatter, compiler.ErrCodeWriteFailed,
				fmt.Sprintf("writing %s: %v", path, err), nil)
		}

		result.Contracts = append(result.Contracts, c.Name())
		result.Files = append(result.Files, name)
	}

	return outputGenSuccess(formatter, loadResult, result)
}

// outputGenSuccess outputs successful generation results.
func outputGenSuccess(formatter *OutputFormatter, loadResult *compiler.LoadResult, result GenResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Generated %d double(s) in %s\n\n", len(result.Files), result.OutDir)

	fmt.Fprintln(formatter.Writer, "Contracts:")
	for i, c := range loadResult.Contracts {
		fmt.Fprintf(formatter.Writer, "  %s: %d operation(s) → %s\n",
			c.Name(), len(c.Operations()), result.Files[i])
	}
	fmt.Fprintln(formatter.Writer)

	return nil
}

// outputGenError outputs a single generation error.
func outputGenError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Generation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputGenErrors outputs multiple compilation errors.
func outputGenErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		// JSON format - use CLIResponse with first error
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseGenError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("generation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Generation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseGenError(err)
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("generation failed with %d error(s)", len(errs)))
}

// parseGenError extracts error code and message from an error.
func parseGenError(err error) (string, string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}
