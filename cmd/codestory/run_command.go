package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codestory/internal/api"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var intentFlag string
	var styleFlag string
	var waitFlag bool
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "run <repository>",
		Short: "Start a story pipeline run for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}

			run, err := apiClient.StartRun(cmd.Context(), api.StartRunRequest{
				Repository: args[0],
				Intent:     intentFlag,
				Style:      styleFlag,
			})
			if err != nil {
				return err
			}

			if jsonFlag && !waitFlag {
				return writeJSON(cmd, run)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s started for %s\n", run.ID, run.Repository)
			if !waitFlag {
				fmt.Fprintf(out, "Follow progress with `codestory watch %s`\n", run.ID)
				return nil
			}
			return followRun(cmd, ctx, run.ID, jsonFlag)
		},
	}

	cmd.Flags().StringVar(&intentFlag, "intent", "", "What you want the story to focus on")
	cmd.Flags().StringVar(&styleFlag, "style", "", "Preferred narrative style (fiction, documentary, tutorial, podcast, technical)")
	cmd.Flags().BoolVarP(&waitFlag, "wait", "w", false, "Stream progress until the run finishes")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Stream progress events for a run until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return followRun(cmd, ctx, args[0], jsonFlag)
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

// followRun long-polls the event stream, printing one line per checkpoint,
// and reports the final result when the run reaches a terminal state.
func followRun(cmd *cobra.Command, ctx *commandContext, runID string, asJSON bool) error {
	apiClient, err := ctx.apiClient()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var cursor uint64
	for {
		resp, err := apiClient.Events(cmd.Context(), runID, cursor, 0, true)
		if err != nil {
			return err
		}
		cursor = resp.Next

		terminal := false
		for _, evt := range resp.Events {
			if !asJSON {
				fmt.Fprintln(out, formatEventLine(evt))
			}
			if evt.Terminal {
				terminal = true
			}
		}
		if terminal {
			break
		}
		if len(resp.Events) == 0 && !streamStillOpen(cmd, apiClient, runID) {
			break
		}
	}

	result, err := apiClient.GetResult(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, result)
	}
	printResultSummary(out, result)
	return nil
}

// streamStillOpen distinguishes an empty long-poll timeout from a stream
// that closed without delivering a terminal event to this cursor.
func streamStillOpen(cmd *cobra.Command, apiClient apiResultFetcher, runID string) bool {
	result, err := apiClient.GetResult(cmd.Context(), runID)
	if err != nil {
		return false
	}
	return result.Pending
}

func formatEventLine(evt api.ProgressEvent) string {
	line := fmt.Sprintf("  [%3d%%] %s", evt.Percent, evt.Message)
	if evt.Terminal && evt.ErrorKind != "" {
		line += fmt.Sprintf(" (%s)", evt.ErrorKind)
	}
	return line
}
