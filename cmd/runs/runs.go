package runs

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stressvision/internal/cli"
	"stressvision/internal/models"
	"stressvision/internal/repository"
	"stressvision/internal/repository/sqlite"
)

// Command creates the command group for browsing stored runs.
func Command(ctx *cli.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse processed runs stored in the database",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(ctx, func(runs repository.RunRepository, _ repository.FrameRepository) error {
				return List(cmd.OutOrStdout(), runs, limit)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 = all)")

	var withFrames bool
	showCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a run with its per-frame statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(ctx, func(runs repository.RunRepository, frames repository.FrameRepository) error {
				return Show(cmd.OutOrStdout(), runs, frames, args[0], withFrames)
			})
		},
	}

	showCmd.Flags().BoolVar(&withFrames, "frames", false, "Include every stored frame result")

	deleteCmd := &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a run and its frame results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(ctx, func(runs repository.RunRepository, _ repository.FrameRepository) error {
				if _, err := runs.GetByID(args[0]); err != nil {
					return err
				}
				if err := runs.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func withRepos(ctx *cli.Context, fn func(repository.RunRepository, repository.FrameRepository) error) error {
	db, err := ctx.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(sqlite.NewRunRepository(db), sqlite.NewFrameRepository(db))
}

// List prints the most recent runs as a table.
func List(w io.Writer, runs repository.RunRepository, limit int) error {
	list, err := runs.List(limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs stored yet")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tFRAMES\tFAILURES\tINPUT")
	for _, run := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			run.ID, run.Status, run.StartedAt.Local().Format(time.DateTime),
			run.FramesWritten, run.FramesRead, run.DetectionFailures, run.InputPath)
	}
	return tw.Flush()
}

type runReport struct {
	*models.Run
	Stats  *models.RunStats     `json:"stats"`
	Frames []models.FrameRecord `json:"frames,omitempty"`
}

// Show prints one run and the statistics of its frames as JSON, optionally
// with every frame record.
func Show(w io.Writer, runs repository.RunRepository, frames repository.FrameRepository, id string, withFrames bool) error {
	run, err := runs.GetByID(id)
	if err != nil {
		return err
	}
	report := runReport{Run: run}

	report.Stats, err = frames.Stats(id)
	if err != nil {
		return err
	}
	if withFrames {
		report.Frames, err = frames.GetByRunID(id)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
