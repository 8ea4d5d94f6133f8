package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/obelisk-acquisitions/chronos-be/internal/config"
	"github.com/obelisk-acquisitions/chronos-be/pkg/log"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithGeminiClient(),
		config.WithCalClient(),
		config.WithS3Client(),
		config.WithSpeakerClient(),
		config.WithAssemblyClient(),
		config.WithTranscriber(),
		config.WithSMSClient(),
		config.WithMailerClient(),
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

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
}
