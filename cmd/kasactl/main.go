package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kasa/internal/cli"
	"kasa/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	if err := cli.NewRootCmd(cli.OpenFromEnv).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
