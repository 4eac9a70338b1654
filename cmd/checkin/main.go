package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/service_registry"
	"github.com/benmeehan/geo-checkin/internal/utils"
	"github.com/benmeehan/geo-checkin/pkg/file"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if config.Logging.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if level, err := zerolog.ParseLevel(config.Logging.Level); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("level", config.Logging.Level).Msg("Unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	if config.LocationSource.Type == utils.SourceMQTT {
		// Generate a unique MQTT Client ID by appending a UUID
		config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
		logger.Info().Msgf("Using MQTT Client ID: %s", config.MQTT.ClientID)
	}
	if config.Map.AccessToken == "" {
		logger.Warn().Msgf("No map access token configured; set map.access_token or %s", utils.MapTokenEnv)
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(fileClient, geometry.NewGeodesic(), logger)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Str("location_source", config.LocationSource.Type).Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop services cleanly")
		os.Exit(1)
	}
}
