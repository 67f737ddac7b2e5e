package image

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"stressvision/internal/app"
	"stressvision/internal/cli"
	"stressvision/internal/models"
	"stressvision/internal/services/video"
)

// Command creates the command that annotates a single image.
func Command(ctx *cli.Context) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "image [input.jpg]",
		Short: "Annotate a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Process(cmd.Context(), ctx, args[0], output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to output file (default processed_<k>frames_<input>)")

	return cmd
}

// Process annotates one image and prints every face found to w.
func Process(cmdCtx context.Context, ctx *cli.Context, input, output string, w io.Writer) error {
	a, err := app.NewApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	frame, err := a.ProcessImage(cmdCtx, input, output)
	if err != nil {
		return err
	}

	if output == "" {
		output = video.DefaultOutputPath(input, ctx.Config.FrameSkip)
	}
	fmt.Fprintf(w, "Output: %s\n", output)
	if frame.Result.Failed {
		fmt.Fprintln(w, "Face detection failed, the image was written without annotations")
		return nil
	}
	fmt.Fprintf(w, "Faces:  %d\n", len(frame.Result.Boxes))
	for i, b := range frame.Result.Boxes {
		status := b.Status.String()
		if b.Status == models.StatusUnknown {
			status = "unlabeled"
		}
		fmt.Fprintf(w, "  #%d %s at (%d,%d) %dx%d emotion=%q confidence=%.2f\n",
			i+1, status, b.Box.X, b.Box.Y, b.Box.Width, b.Box.Height, b.Emotion, b.Confidence)
	}
	return nil
}
