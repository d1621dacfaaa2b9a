package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"obesityrisk/config"
	qhttp "obesityrisk/http"
	"obesityrisk/logging"
	"obesityrisk/metrics"
	"obesityrisk/ml"
	"obesityrisk/prediction"
	"obesityrisk/realtime"
	"obesityrisk/session"
	"obesityrisk/wizard"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	envPath := flag.String("env", ".env", "dotenv file")
	flag.Parse()

	// 1. Load config
	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatalf("Failed to load %s: %v", *envPath, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Model artifacts
	artifacts := ml.NewArtifactStore(ml.FileLoader(cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.EncoderPath))
	predictor := prediction.NewService(artifacts, logger.Named("prediction"))
	if cfg.ML.Preload {
		if err := predictor.Warm(); err != nil {
			// Sessions still work; submits report the artifact as unavailable.
			logger.Warn("model not loaded", zap.Error(err))
		} else {
			classes, _ := predictor.Classes()
			logger.Info("model loaded", zap.String("path", cfg.ML.ModelPath), zap.Strings("classes", classes))
		}
	}

	// 3. Sessions and realtime
	form := wizard.ObesityForm()
	opts := wizard.Options{
		RequirePageComplete:  cfg.Wizard.RequirePageComplete,
		ClearStalePrediction: cfg.Wizard.ClearStalePrediction,
		PrefillDefaults:      cfg.Wizard.PrefillDefaults,
	}
	sessions := session.NewStore(cfg.Session.Capacity, cfg.Session.TTL, func() *wizard.Wizard {
		return wizard.New(form, predictor, opts)
	}, logger.Named("session"))

	hub := realtime.NewHub(logger.Named("realtime"))
	go hub.Start()
	defer hub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = config.Watch(ctx, *configPath, func(next *config.Config) {
		if err := logging.SetLevel(level, next.Log.Level); err != nil {
			logger.Warn("config reload", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("log_level", next.Log.Level))
	}, func(err error) {
		logger.Warn("config reload", zap.Error(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
	}

	// 4. Start HTTP server
	handlers := qhttp.NewHandlers(sessions, hub, form, artifacts, metrics.NewCollector(), logger.Named("http"))
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, handlers, logger.Named("http"))
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}
