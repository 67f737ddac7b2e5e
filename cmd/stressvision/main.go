package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stressvision/cmd"
	"stressvision/internal/cli"
	"stressvision/internal/config"
	"stressvision/internal/services/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliCtx := cli.NewContext(cfg)
	rootCmd := cmd.RootCommand(cliCtx)
	err = rootCmd.ExecuteContext(ctx)
	cliCtx.Close()
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrInvalid) || errors.Is(err, pipeline.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
