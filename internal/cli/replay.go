package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/internal/compiler"
	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/double"
	"github.com/roach88/understudy/pkg/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database     string
	ContractsDir string
	Substitute   string // optional - specific substitute only
}

// ReplaySubstituteResult holds the replay outcome for one substitute.
type ReplaySubstituteResult struct {
	SubstituteID string `json:"substitute_id"`
	Contract     string `json:"contract"`
	Calls        int    `json:"calls"`
	Groups       int    `json:"groups"`
	Skipped      int    `json:"skipped"`
	Replayable   bool   `json:"replayable"`
	Reason       string `json:"reason,omitempty"`
}

// ReplayResult holds the overall replay verification result.
type ReplayResult struct {
	Substitutes   []ReplaySubstituteResult `json:"substitutes"`
	Total         int                      `json:"total"`
	AllReplayable bool                     `json:"all_replayable"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify recorded journals replay against current contracts",
		Long: `Verify that recorded journals still replay against the current
contract definitions.

Each substitute's rows are registered onto a fresh engine built from
the contracts directory. A journal that no longer fits its contract
(renamed operations, changed arity, missing contract) is reported as
drift.

Exit codes:
  0 - All substitutes replay cleanly
  1 - Replay verification failed (contract drift detected)
  2 - Command error (journal not found, contracts do not compile, etc.)

Examples:
  understudy replay --db ./journal.db --contracts ./contracts
  understudy replay --db ./journal.db --contracts ./contracts --substitute checkout-1
  understudy replay --db ./journal.db --contracts ./contracts --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ContractsDir, "contracts", "", "directory with CUE contract definitions (required)")
	_ = cmd.MarkFlagRequired("contracts")
	cmd.Flags().StringVar(&opts.Substitute, "substitute", "", "verify specific substitute only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	loadResult, loadErrors := compiler.LoadDir(opts.ContractsDir, compiler.LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to load contracts", loadErrors[0])
	}
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "contracts do not compile", loadErrors[0])
	}

	contracts := make(map[string]*contract.Contract, len(loadResult.Contracts))
	for _, c := range loadResult.Contracts {
		contracts[c.Name()] = c
	}

	// Resolve which substitutes to verify
	summaries, err := resolveSubstitutes(ctx, st, opts.Substitute)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list substitutes", err)
	}

	if len(summaries) == 0 {
		if opts.Format == "json" {
			result := ReplayResult{
				Substitutes:   []ReplaySubstituteResult{},
				Total:         0,
				AllReplayable: true,
			}
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded substitutes found in journal.")
		return nil
	}

	result := ReplayResult{
		Substitutes:   make([]ReplaySubstituteResult, 0, len(summaries)),
		Total:         len(summaries),
		AllReplayable: true,
	}

	for _, sum := range summaries {
		subResult := replaySubstitute(ctx, st, contracts, sum)
		result.Substitutes = append(result.Substitutes, subResult)
		if !subResult.Replayable {
			result.AllReplayable = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// resolveSubstitutes returns the substitutes to verify: the named one,
// or every substitute present in the journal.
func resolveSubstitutes(ctx context.Context, st *journal.Store, substituteID string) ([]journal.SubstituteSummary, error) {
	summaries, err := st.Substitutes(ctx)
	if err != nil {
		return nil, err
	}

	if substituteID == "" {
		return summaries, nil
	}

	for _, sum := range summaries {
		if sum.ID == substituteID {
			return []journal.SubstituteSummary{sum}, nil
		}
	}
	return nil, nil
}

// replaySubstitute registers one substitute's rows onto a throwaway
// engine built from the current contract definitions.
func replaySubstitute(ctx context.Context, st *journal.Store, contracts map[string]*contract.Contract, sum journal.SubstituteSummary) ReplaySubstituteResult {
	result := ReplaySubstituteResult{
		SubstituteID: sum.ID,
		Contract:     sum.Contract,
	}

	c, ok := contracts[sum.Contract]
	if !ok {
		result.Reason = fmt.Sprintf("contract %q not defined in contracts directory", sum.Contract)
		return result
	}

	reg := double.NewRegistry()
	sub, err := reg.CreateSubstitute(c)
	if err != nil {
		result.Reason = err.Error()
		return result
	}
	eng, err := reg.EngineFor(sub)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	stats, err := journal.Replay(ctx, st, sum.ID, eng)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	result.Calls = stats.Calls
	result.Groups = stats.Groups
	result.Skipped = stats.Skipped
	result.Replayable = true
	return result
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllReplayable {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY",
			Message: "replay verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllReplayable {
		// Drift = exit code 1
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d substitute(s)\n", result.Total)
	fmt.Fprintln(w)

	for _, sub := range result.Substitutes {
		status := "✓"
		if !sub.Replayable {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Substitute: %s\n", status, sub.SubstituteID)

		if !sub.Replayable {
			fmt.Fprintf(w, "  Reason: %s\n", sub.Reason)
			fmt.Fprintln(w)
			continue
		}

		if verbose {
			fmt.Fprintf(w, "  Contract: %s\n", sub.Contract)
			fmt.Fprintf(w, "  Calls: %d\n", sub.Calls)
			fmt.Fprintf(w, "  Groups: %d\n", sub.Groups)
			fmt.Fprintf(w, "  Skipped: %d\n", sub.Skipped)
		} else {
			fmt.Fprintf(w, "  Calls: %d in %d group(s)\n", sub.Calls, sub.Groups)
		}
		fmt.Fprintln(w)
	}

	if result.AllReplayable {
		fmt.Fprintln(w, "✓ All substitutes replayable")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	// Drift = exit code 1
	return NewExitError(ExitFailure, "replay verification failed")
}
