package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Substitute string
	Operation  string // optional - filter to specific operation
}

// TraceEvent represents a single recorded call in the trace timeline.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Operation  string `json:"operation"`
	Signature  string `json:"signature"`
	Call       string `json:"call"`
	Result     string `json:"result,omitempty"`
	Replayable bool   `json:"replayable"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SubstituteID string       `json:"substitute_id"`
	Contract     string       `json:"contract,omitempty"`
	Timeline     []TraceEvent `json:"timeline"`
	Stats        TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalCalls   int `json:"total_calls"`
	Operations   int `json:"operations"`
	Unreplayable int `json:"unreplayable"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a substitute's recorded calls",
		Long: `Inspect the journal timeline recorded for a substitute.

Shows every recorded call in sequence order: the operation with its
argument values, the stubbed result, and whether the row can be
replayed onto a fresh engine.

Examples:
  understudy trace --db ./journal.db --substitute checkout-1
  understudy trace --db ./journal.db --substitute checkout-1 --operation Charge
  understudy trace --db ./journal.db --substitute checkout-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Substitute, "substitute", "", "substitute ID to trace (required)")
	_ = cmd.MarkFlagRequired("substitute")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "filter to specific operation")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	// The operation filter runs in the store, not here
	var filter journal.Filter
	if opts.Operation != "" {
		filter = journal.OperationIs{Name: opts.Operation}
	}

	calls, err := st.Query(ctx, opts.Substitute, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recorded calls", err)
	}

	// Check if the substitute has any recorded calls
	if len(calls) == 0 {
		if opts.Format == "json" {
			return outputTraceJSON(cmd, TraceResult{
				SubstituteID: opts.Substitute,
				Timeline:     []TraceEvent{},
				Stats:        TraceStats{},
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded calls for substitute: %s\n", opts.Substitute)
		return nil
	}

	timeline := buildCallTimeline(calls)

	result := TraceResult{
		SubstituteID: opts.Substitute,
		Contract:     calls[0].Contract,
		Timeline:     timeline,
		Stats:        buildTraceStats(timeline),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// buildCallTimeline converts journal rows to trace timeline events.
func buildCallTimeline(calls []journal.Call) []TraceEvent {
	var timeline []TraceEvent

	for _, c := range calls {
		timeline = append(timeline, TraceEvent{
			Seq:        c.Seq,
			Operation:  c.Operation,
			Signature:  c.Signature,
			Call:       renderRecordedCall(c),
			Result:     renderRecordedResult(c),
			Replayable: c.Replayable,
		})
	}

	return timeline
}

// renderRecordedCall formats one recorded call as invocation text.
// Unreplayable rows already store rendered argument text, so their
// parts join as-is instead of being re-rendered.
func renderRecordedCall(c journal.Call) string {
	if c.Replayable {
		return contract.RenderCall(c.Operation, c.Args)
	}

	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		if s, ok := arg.(string); ok {
			parts[i] = s
		} else {
			parts[i] = contract.Render(arg)
		}
	}
	return c.Operation + "(" + strings.Join(parts, ", ") + ")"
}

// renderRecordedResult formats a recorded result value. Void and
// pending-deferred rows store nothing and render empty.
func renderRecordedResult(c journal.Call) string {
	if c.Result == nil {
		return ""
	}
	if !c.Replayable {
		if s, ok := c.Result.(string); ok {
			return s
		}
	}
	return contract.Render(c.Result)
}

// buildTraceStats computes summary statistics over the timeline.
func buildTraceStats(timeline []TraceEvent) TraceStats {
	stats := TraceStats{TotalCalls: len(timeline)}

	ops := make(map[string]bool)
	for _, event := range timeline {
		ops[event.Operation] = true
		if !event.Replayable {
			stats.Unreplayable++
		}
	}
	stats.Operations = len(ops)

	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Substitute: %s\n", result.SubstituteID)
	fmt.Fprintf(w, "Contract: %s\n", result.Contract)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Calls:  %d\n", result.Stats.TotalCalls)
	fmt.Fprintf(w, "  Operations:   %d\n", result.Stats.Operations)
	fmt.Fprintf(w, "  Unreplayable: %d\n", result.Stats.Unreplayable)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	line := fmt.Sprintf("  [%d] %s", event.Seq, event.Call)
	if event.Result != "" {
		line += " → " + event.Result
	}
	if !event.Replayable {
		line += "  (unreplayable)"
	}
	fmt.Fprintln(w, line)

	if verbose {
		fmt.Fprintf(w, "       sig: %s\n", event.Signature)
	}
}
