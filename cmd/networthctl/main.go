package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// an interrupted recalculate stops between accounts and reports the rest as pending
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
