package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stressvision/internal/app"
	"stressvision/internal/cli"
	"stressvision/internal/services/video"
)

// Command creates the command that annotates a video file.
func Command(ctx *cli.Context) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "video [input.mp4]",
		Short: "Annotate a video file",
		Long:  `Detect faces on every k-th frame of a video, mark them as calm or stressed and write the annotated video.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Process(cmd.Context(), ctx, args[0], output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to output file (default processed_<k>frames_<input>)")

	return cmd
}

// Process runs one video through the pipeline and prints a summary to w.
func Process(cmdCtx context.Context, ctx *cli.Context, input, output string, w io.Writer) error {
	a, err := app.NewApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start(cmdCtx)

	progress := cli.NewProgress(os.Stderr, "🔍 Processing", video.CountFrames(input))
	summary, err := a.ProcessVideo(cmdCtx, input, output, progress)
	progress.Finish()
	if err != nil {
		return err
	}

	if output == "" {
		output = video.DefaultOutputPath(input, ctx.Config.FrameSkip)
	}
	fmt.Fprintf(w, "Run:                %s\n", summary.RunID)
	fmt.Fprintf(w, "Output:             %s\n", output)
	fmt.Fprintf(w, "Frames read:        %d\n", summary.FramesRead)
	fmt.Fprintf(w, "Frames analyzed:    %d\n", summary.FramesSampled)
	fmt.Fprintf(w, "Frames written:     %d\n", summary.FramesWritten)
	fmt.Fprintf(w, "Detection failures: %d\n", summary.DetectionFailures)
	fmt.Fprintf(w, "Coasted frames:     %d\n", summary.CoastedFrames)
	fmt.Fprintf(w, "Expired tracks:     %d\n", summary.ExpiredTracks)
	fmt.Fprintf(w, "Duration:           %s\n", summary.Duration.Round(time.Millisecond))
	return nil
}
