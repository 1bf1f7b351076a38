package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/saint0x/ghscribe/pkg/config"
	"github.com/saint0x/ghscribe/pkg/log"
	"github.com/saint0x/ghscribe/pkg/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := config.Load(ctx)
	if err != nil {
		log.New(false).Error("❌ Failed to load environment: %v", err)
		os.Exit(1)
	}
	logger := log.New(env.Debug)

	logger.Step("🚀 Starting ghscribe server...")
	logger.Info("🔧 Debug mode: %v", env.Debug)

	logger.Step("🔍 Validating environment...")
	if err := env.Validate(logger); err != nil {
		logger.Error("❌ Environment validation failed: %v", err)
		os.Exit(1)
	}
	logger.Success("✅ Environment validated")

	srv, err := server.New(logger, env.Port, server.NewSessionFactory(logger, env))
	if err != nil {
		logger.Error("❌ Failed to create server: %v", err)
		os.Exit(1)
	}
	logger.Success("✅ Server initialized")

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("🛑 Received signal: %v", sig)
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Error("❌ Server error: %v", err)
		os.Exit(1)
	}

	logger.Success("✨ Server shutdown complete")
}
