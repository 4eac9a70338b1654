package service_registry

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/models"
	"github.com/benmeehan/geo-checkin/internal/server"
	"github.com/benmeehan/geo-checkin/internal/services"
	"github.com/benmeehan/geo-checkin/internal/utils"
	"github.com/benmeehan/geo-checkin/pkg/file"
	"github.com/benmeehan/geo-checkin/pkg/geometry"
	"github.com/benmeehan/geo-checkin/pkg/location"
	"github.com/benmeehan/geo-checkin/pkg/mqtt"
)

// Service is the interface for all plug-in services
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	fileClient  file.FileOperations
	geometry    geometry.Provider
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(fileClient file.FileOperations, geom geometry.Provider, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		fileClient: fileClient,
		geometry:   geom,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns a registered service by name.
func (sr *ServiceRegistry) Service(name string) (Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the location source and the page server from configuration.
// Browser-sourced positions need no shared service; each page brings its own.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	zone := models.DefaultTargetZone(sr.geometry)
	var shared location.Source

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "location",
			enabled: config.LocationSource.Type != utils.SourceBrowser,
			constructor: func() (Service, error) {
				svc, err := sr.newLocationService(config)
				if err != nil {
					return nil, err
				}
				shared = svc.Source()
				return svc, nil
			},
		},
		{
			name:    "server",
			enabled: true,
			constructor: func() (Service, error) {
				return server.NewServer(config, server.SessionDeps{
					Page: services.PageDeps{
						Zone:     zone,
						Geometry: sr.geometry,
					},
					Config: services.PageConfig{
						Container: config.Map.Container,
						MapStyle:  config.Map.Style,
						Zoom:      constants.InitialZoom,
						Options:   config.LocationOptions(),
					},
					Shared: shared,
				}, sr.Logger), nil
			},
		},
	}

	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

func (sr *ServiceRegistry) newLocationService(config *utils.Config) (*services.LocationService, error) {
	src := config.LocationSource
	switch src.Type {
	case utils.SourceGPS:
		provider := location.NewDeviceSensorProvider(src.GPSDevicePort, src.GPSDeviceBaudRate)
		polling := location.NewPollingSource(provider, src.Interval, sr.Logger)
		return services.NewPolledLocationService(src.Type, polling, sr.Logger), nil
	case utils.SourceGoogle:
		provider, err := location.NewGoogleGeolocationProvider(src.MapsAPIKey, src.ModemIndex)
		if err != nil {
			sr.Logger.Error().Err(err).Msg("failed to create Google Geolocation provider")
			return nil, err
		}
		polling := location.NewPollingSource(provider, src.Interval, sr.Logger)
		return services.NewPolledLocationService(src.Type, polling, sr.Logger), nil
	case utils.SourceMQTT:
		client := mqtt.NewMqttService(sr.fileClient)
		if err := client.Initialize(mqtt.Settings{
			Broker:        config.MQTT.Broker,
			ClientID:      config.MQTT.ClientID,
			CACertificate: config.MQTT.CACertificate,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize MQTT connection: %w", err)
		}
		source := location.NewMQTTSource(client, config.MQTT.Topic, config.MQTT.QOS, sr.Logger)
		return services.NewMQTTLocationService(source, client, sr.Logger), nil
	default:
		return nil, fmt.Errorf("unknown location source %q", src.Type)
	}
}
