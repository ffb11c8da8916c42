package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codestory/internal/runs"
)

func stageFlagUsage() string {
	names := make([]string, 0, len(runs.AllStages()))
	for _, stage := range runs.AllStages() {
		names = append(names, string(stage))
	}
	return "Filter by stage (repeatable): " + strings.Join(names, ", ")
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var stageFlags []string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, value := range stageFlags {
				if _, ok := runs.ParseStage(value); !ok {
					return fmt.Errorf("unknown stage %q", value)
				}
			}
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			items, err := apiClient.ListRuns(cmd.Context(), stageFlags...)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, map[string]any{"runs": items})
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No runs found")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, run := range items {
				rows = append(rows, []string{
					run.ID,
					run.Repository,
					run.Stage,
					fmt.Sprintf("%d%%", run.Progress.Percent),
					run.Progress.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Repository", "Stage", "Progress", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&stageFlags, "stage", nil, stageFlagUsage())
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel an in-flight run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := apiClient.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s cancelled\n", args[0])
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <run-id>",
		Short: "Delete a run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := apiClient.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s removed\n", args[0])
			return nil
		},
	}
}
