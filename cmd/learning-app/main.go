package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"learning-app-go/cmd/learning-app/app"
	"learning-app-go/pkg/logger"
)

func main() {
	log := logger.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd(log).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
