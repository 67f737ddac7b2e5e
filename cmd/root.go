package cmd

import (
	"github.com/spf13/cobra"

	"stressvision/cmd/image"
	"stressvision/cmd/process"
	"stressvision/cmd/runs"
	"stressvision/cmd/video"
	"stressvision/internal/cli"
	"stressvision/internal/config"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *cli.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stressvision",
		Short:         "Mark faces in images and videos as calm or stressed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, ctx.Config)

	rootCmd.AddCommand(
		video.Command(ctx),
		image.Command(ctx),
		process.Command(ctx),
		runs.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.Setup()
	}

	return rootCmd
}

// setupFlags binds the pipeline options; defaults come from the environment.
func setupFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.PersistentFlags()

	flags.IntVarP(&cfg.FrameSkip, "frame-skip", "k", cfg.FrameSkip, "Run detection on every k-th frame")
	flags.IntVarP(&cfg.WorkerCount, "workers", "w", cfg.WorkerCount, "Number of detection workers")
	flags.IntVar(&cfg.CoastingTolerance, "tolerance", cfg.CoastingTolerance, "Missed detections during which the last box is still drawn")
	flags.IntVar(&cfg.MaxPending, "max-pending", cfg.MaxPending, "Maximum results waiting to be written in order")
	flags.DurationVar(&cfg.TaskTimeout, "timeout", cfg.TaskTimeout, "Per-frame detection timeout (0 = none)")
	flags.BoolVar(&cfg.KeepAllFrames, "keep-all", cfg.KeepAllFrames, "Write frames without detection too, at the source frame rate")
	flags.BoolVar(&cfg.Enhance, "enhance", cfg.Enhance, "Adjust contrast of very dark or bright frames before detection")
	flags.StringSliceVar(&cfg.StressLabels, "stress-labels", cfg.StressLabels, "Emotions reported as stressed")
	flags.StringVar(&cfg.DetectorModel, "detector-model", cfg.DetectorModel, "Path to the face detection model")
	flags.StringVar(&cfg.DetectorConfig, "detector-config", cfg.DetectorConfig, "Path to the face detection network config")
	flags.Float64Var(&cfg.DetectionThreshold, "detection-threshold", cfg.DetectionThreshold, "Minimum face detection confidence")
	flags.StringVar(&cfg.EmotionModel, "emotion-model", cfg.EmotionModel, "Path to the emotion model (empty = no labels)")
	flags.Float64Var(&cfg.EmotionThreshold, "emotion-threshold", cfg.EmotionThreshold, "Minimum emotion score, lower is unknown")
	flags.StringVar(&cfg.OutputCodec, "codec", cfg.OutputCodec, "FourCC of the output video codec")
	flags.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database for run history (empty = disabled)")
	flags.StringVar(&cfg.PreviewAddr, "preview", cfg.PreviewAddr, "Address of the live preview server, e.g. :8080 (empty = disabled)")
	flags.StringVar(&cfg.PreviewToken, "preview-token", cfg.PreviewToken, "Token required by the preview server (empty = open)")
	flags.StringVar(&cfg.LogDirectory, "log-dir", cfg.LogDirectory, "Directory for log files")
}
