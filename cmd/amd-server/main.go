// amd-server: answering machine detection service for outbound dialers.
// Serves one-shot prediction over HTTP and streaming classification
// over WebSocket.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/outdial/amd/internal/config"
	"github.com/outdial/amd/internal/httpc"
	"github.com/outdial/amd/internal/log"
	"github.com/outdial/amd/pkg/classify"
	"github.com/outdial/amd/pkg/model"
	"github.com/outdial/amd/pkg/ratelimit"
	"github.com/outdial/amd/pkg/session"
	"github.com/outdial/amd/pkg/web"
)

var version = "1.0.0"

func main() {
	godotenv.Load()

	cfg := config.Load()
	log.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := web.Options{
		Version:        version,
		Debug:          cfg.Debug,
		PredictLimiter: ratelimit.New(cfg.PredictPerMinute, time.Minute),
		HealthLimiter:  ratelimit.New(cfg.HealthPerMinute, time.Minute),
		MaxUploadBytes: cfg.MaxUploadBytes,
		MinUploadBytes: cfg.MinUploadBytes,
		SessionConfig:  sessionConfig(cfg),
	}

	// Stale limiter buckets are swept in the background.
	go opts.PredictLimiter.Janitor(ctx, time.Minute)
	go opts.HealthLimiter.Janitor(ctx, time.Minute)

	if cfg.ModelPath != "" {
		loader := model.NewLoader(func() (model.Model, error) {
			return model.NewONNXModel(cfg.ModelPath,
				model.WithModelSampleRate(cfg.SampleRate))
		})
		opts.Loader = loader
		opts.Local = classify.NewLocal(loader)
		log.Info("local model configured", "path", cfg.ModelPath)
	} else {
		log.Warn("AMD_MODEL_PATH not set, local prediction disabled")
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := classify.NewGemini(ctx, cfg.GeminiAPIKey,
			classify.WithModel(cfg.GeminiModel),
			classify.WithPollInterval(cfg.PollInterval),
			classify.WithHTTPClient(httpc.NewClient(httpc.DefaultTimeout)),
		)
		if err != nil {
			log.Error("Gemini init failed", "error", err)
			os.Exit(1)
		}
		opts.Gemini = gemini
		log.Info("Gemini classifier configured", "model", cfg.GeminiModel)
	} else {
		log.Warn("GEMINI_API_KEY not set, Gemini prediction disabled")
	}

	if opts.Local == nil && opts.Gemini == nil {
		log.Error("no classifier configured, set AMD_MODEL_PATH or GEMINI_API_KEY")
		os.Exit(1)
	}

	srv := web.NewServer(opts)

	go func() {
		if err := srv.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if opts.Loader != nil {
		opts.Loader.Close()
	}
}

func sessionConfig(cfg config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.SampleRate = cfg.SampleRate
	sc.BufferThresholdMs = cfg.BufferThresholdMs
	sc.IdleTimeout = cfg.IdleTimeout
	sc.DecisionThreshold = cfg.DecisionThreshold
	return sc
}
