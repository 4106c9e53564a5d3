// Command fitmeasure-cli measures photos against a running service or in-process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okian/fitmeasure/internal/cli"
	"github.com/okian/fitmeasure/pkg/logger"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithLevel("warn")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
