package main

import (
	"SkinDetect/internal/config"
	"SkinDetect/pkg/log"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", envErr)
	}

	env, err := config.LoadEnv()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	detector, modelCloser := buildDetector(ctx, logger, env)
	db := openDatabase(ctx, logger, env)
	recorder := buildRecorder(logger, env, db)
	counter := buildStatsCounter(logger, env)

	fiberApp := config.NewFiber(logger, env)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(validator),
		config.WithDatabase(db),
		config.WithRedisServer(counter),
		config.WithDetector(detector),
		config.WithRecorder(recorder),
		config.WithCloser(modelCloser),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithFields(log.Fields{
		"port":     env.AppPort,
		"strategy": detector.Strategy(),
		"storage":  recorder.Kind(),
	}).Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
