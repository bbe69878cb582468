package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"learning-app-go/internal/app"
	"learning-app-go/internal/config"
	"learning-app-go/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootLog := logger.NewFromEnv()

	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Critical("app: config failed", "err", err)
		return 1
	}
	log := logger.NewFromConfig(cfg.Log, os.Stderr)
	log.Info("app: starting", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stub := app.NewStub(cfg, log)
	ln, err := net.Listen("tcp", stub.Addr())
	if err != nil {
		log.Critical("http: listen failed", "addr", stub.Addr(), "err", err)
		return 1
	}

	if err := stub.Serve(ctx, ln); err != nil {
		log.Critical("http: server failed", "err", err)
		return 1
	}

	log.Info("app: stopped")
	return 0
}
