package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"codestory/internal/api"
)

type apiResultFetcher interface {
	GetResult(ctx context.Context, id string) (api.ResultResponse, error)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the state and result of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := apiClient.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, result)
			}
			printResultDetail(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func printResultDetail(out io.Writer, result api.ResultResponse) {
	run := result.Run
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Repository: %s\n", run.Repository)
	if run.PreferredStyle != "" {
		fmt.Fprintf(out, "Style:      %s\n", run.PreferredStyle)
	}
	fmt.Fprintf(out, "Stage:      %s\n", run.Stage)
	fmt.Fprintf(out, "Progress:   %d%% %s\n", run.Progress.Percent, run.Progress.Message)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s (%s)\n", run.ErrorMessage, run.ErrorKind)
	}
	printResultSummary(out, result)
}

func printResultSummary(out io.Writer, result api.ResultResponse) {
	switch {
	case result.Pending:
		fmt.Fprintln(out, "Run is still in progress")
	case result.Audio != nil:
		printAudioSummary(out, result)
	default:
		fmt.Fprintf(out, "Run failed: %s\n", result.Run.ErrorMessage)
	}
}

func printAudioSummary(out io.Writer, result api.ResultResponse) {
	audio := result.Audio
	if result.Run.Partial {
		fmt.Fprintf(out, "Story completed partially: %s\n", audio.Error)
	} else {
		fmt.Fprintln(out, "Story complete")
	}
	if audio.VoiceName != "" {
		fmt.Fprintf(out, "Voice: %s\n", audio.VoiceName)
	}
	if audio.AudioURL != "" {
		fmt.Fprintf(out, "Audio: %s (%s)\n", audio.AudioURL, formatDuration(audio.TotalDurationSeconds))
	}

	chapters := audio.Chapters
	if len(chapters) == 0 {
		chapters = audio.PartialChapters
	}
	if len(chapters) == 0 {
		return
	}
	rows := make([][]string, 0, len(chapters))
	for _, ch := range chapters {
		rows = append(rows, []string{
			strconv.Itoa(ch.Number),
			ch.Title,
			formatDuration(ch.DurationSeconds),
			ch.AudioURL,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Chapter", "Length", "Audio"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	))
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	minutes := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
