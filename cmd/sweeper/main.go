package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/config"
	"github.com/alialjohani/quickhop-sub000/internal/lifecycle"
	"github.com/alialjohani/quickhop-sub000/internal/logger"
	"github.com/alialjohani/quickhop-sub000/internal/store"
	"github.com/alialjohani/quickhop-sub000/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		zlog.Fatal("migrations", zap.Error(err))
	}

	machine := lifecycle.NewMachine(st, zlog)
	sweeper := lifecycle.NewSweeper(st, machine, cfg.SweepInterval, zlog)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			zlog.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	zlog.Info("sweeper started", zap.Duration("interval", cfg.SweepInterval))
	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error("sweeper stopped", zap.Error(err))
	}
}
