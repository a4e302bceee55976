package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alialjohani/quickhop-sub000/internal/ai"
	"github.com/alialjohani/quickhop-sub000/internal/ai/gemini"
	api "github.com/alialjohani/quickhop-sub000/internal/api"
	"github.com/alialjohani/quickhop-sub000/internal/config"
	"github.com/alialjohani/quickhop-sub000/internal/docstore"
	"github.com/alialjohani/quickhop-sub000/internal/lifecycle"
	"github.com/alialjohani/quickhop-sub000/internal/logger"
	"github.com/alialjohani/quickhop-sub000/internal/pipeline"
	"github.com/alialjohani/quickhop-sub000/internal/ratelimit"
	"github.com/alialjohani/quickhop-sub000/internal/resume"
	"github.com/alialjohani/quickhop-sub000/internal/screening"
	"github.com/alialjohani/quickhop-sub000/internal/session"
	"github.com/alialjohani/quickhop-sub000/internal/store"
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	sessions := session.NewStore(redisClient)

	docs, err := docstore.New(ctx, docstore.Options{
		Bucket:       cfg.ResumeBucket,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		PathStyle:    cfg.S3PathStyle,
		SignedURLTTL: cfg.SignedURLTTL,
	})
	if err != nil {
		zlog.Fatal("init document store", zap.Error(err))
	}

	aiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		zlog.Fatal("init ai client", zap.Error(err))
	}
	aiLimiter := ratelimit.NewTokenBucket(redisClient, cfg.AIRateCapacity, cfg.AIRateRefill, cfg.RateLimitTTL)
	throttledAI := ai.NewThrottled(aiClient, aiLimiter)

	machine := lifecycle.NewMachine(st, zlog)
	scorer := screening.NewScorer(throttledAI, zlog, cfg.AICallTimeout)
	provisioner := resume.NewProvisioner(throttledAI, resume.NewTextRenderer(), docs, zlog, cfg.AICallTimeout)
	runner := pipeline.NewRunner(st, sessions, scorer, provisioner, machine, zlog, cfg.PipelineConcurrency)

	createLimiter := ratelimit.NewTokenBucket(redisClient, cfg.CreateRateCapacity, cfg.CreateRateRefill, cfg.RateLimitTTL)
	server := api.New(cfg, st, sessions, docs, runner, machine, createLimiter, zlog)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	zlog.Info("api listening", zap.String("port", cfg.HTTPPort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
