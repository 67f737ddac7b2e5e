package process

import (
	"fmt"

	"github.com/spf13/cobra"

	imagecmd "stressvision/cmd/image"
	videocmd "stressvision/cmd/video"
	"stressvision/internal/cli"
	"stressvision/internal/services/pipeline"
	"stressvision/internal/services/video"
)

// Command creates the command that picks image or video processing by the
// input's extension.
func Command(ctx *cli.Context) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Annotate an image or a video, chosen by file extension",
		Long:  `Annotate an input file. jpg, jpeg and png are processed as images; mp4, avi and mov as videos.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			switch video.DetectKind(input) {
			case video.KindImage:
				return imagecmd.Process(cmd.Context(), ctx, input, output, cmd.OutOrStdout())
			case video.KindVideo:
				return videocmd.Process(cmd.Context(), ctx, input, output, cmd.OutOrStdout())
			default:
				return pipeline.ConfigError("run", fmt.Errorf("unsupported file type: %s", input))
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to output file (default processed_<k>frames_<input>)")

	return cmd
}
