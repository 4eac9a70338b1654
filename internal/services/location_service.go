package services

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/pkg/location"
	"github.com/benmeehan/geo-checkin/pkg/mqtt"
)

// LocationService owns a device-level position source shared by every page.
type LocationService struct {
	kind   string
	source location.Source
	logger zerolog.Logger

	onStart func() error
	onStop  func() error

	running bool
}

// NewPolledLocationService wraps a provider-backed source. Stopping closes the provider.
func NewPolledLocationService(kind string, source *location.PollingSource, logger zerolog.Logger) *LocationService {
	return &LocationService{
		kind:    kind,
		source:  source,
		logger:  logger,
		onStart: func() error { return nil },
		onStop:  source.Close,
	}
}

// NewMQTTLocationService wraps a broker-backed source. Stopping disconnects the client.
func NewMQTTLocationService(source *location.MQTTSource, client mqtt.MQTTClient, logger zerolog.Logger) *LocationService {
	return &LocationService{
		kind:    "mqtt",
		source:  source,
		logger:  logger,
		onStart: source.Start,
		onStop: func() error {
			err := source.Stop()
			client.Disconnect(250)
			return err
		},
	}
}

// Source returns the shared source.
func (l *LocationService) Source() location.Source {
	return l.source
}

// Start makes the source available to pages.
func (l *LocationService) Start() error {
	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	if err := l.onStart(); err != nil {
		l.logger.Error().Err(err).Str("source", l.kind).Msg("Failed to start location source")
		return err
	}
	l.running = true

	l.logger.Info().Str("source", l.kind).Msg("LocationService started")
	return nil
}

// Stop releases the source.
func (l *LocationService) Stop() error {
	if !l.running {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}
	l.running = false

	if err := l.onStop(); err != nil {
		l.logger.Error().Err(err).Str("source", l.kind).Msg("Failed to stop location source")
		return err
	}

	l.logger.Info().Msg("LocationService stopped")
	return nil
}
