package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/pkg/file"
	"github.com/benmeehan/geo-checkin/pkg/location"
)

// Location source types.
const (
	SourceBrowser = "browser"
	SourceGPS     = "gps"
	SourceGoogle  = "google"
	SourceMQTT    = "mqtt"
)

// MapTokenEnv overrides map.access_token when set.
const MapTokenEnv = "MAPBOX_ACCESS_TOKEN"

// Config represents the structure of the configuration file.
type Config struct {
	Server struct {
		Addr              string        `yaml:"addr"`                // Listen address for the page server
		AllowedOrigin     string        `yaml:"allowed_origin"`      // Origin granted geolocation in Permissions-Policy
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // Max time to read request headers
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // Grace period for in-flight requests on stop
		SessionRateLimit  int           `yaml:"session_rate_limit"`  // Page sessions per minute per client IP
	} `yaml:"server"`

	Map struct {
		AccessToken string `yaml:"access_token"` // Mapbox access token
		Style       string `yaml:"style"`        // Mapbox style URL
		Container   string `yaml:"container"`    // DOM id of the map container
	} `yaml:"map"`

	LocationSource struct {
		Type               string        `yaml:"type"`                 // browser, gps, google or mqtt
		Interval           time.Duration `yaml:"interval"`             // Sampling interval for polled sources
		EnableHighAccuracy bool          `yaml:"enable_high_accuracy"` // Favor precision over availability
		Timeout            time.Duration `yaml:"timeout"`              // Bounded wait for a fix
		MaximumAge         time.Duration `yaml:"maximum_age"`          // Oldest cached fix accepted
		GPSDevicePort      string        `yaml:"gps_device_port"`      // UNIX Port where the GPS sensor is mounted
		GPSDeviceBaudRate  int           `yaml:"gps_baud_rate"`        // The Baud rate for GPS sensor
		MapsAPIKey         string        `yaml:"maps_api_key"`         // Google maps API Key
		ModemIndex         int           `yaml:"modem_index"`          // ModemManager index for cell lookups
	} `yaml:"location_source"`

	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
		Username      string `yaml:"username"`       // Broker username
		Password      string `yaml:"password"`       // Broker password
		Topic         string `yaml:"topic"`          // Topic carrying location fixes
		QOS           int    `yaml:"qos"`            // MQTT QoS level for the subscription
	} `yaml:"mqtt"`

	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // Human readable console output
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used for fields absent from the file.
func DefaultConfig() *Config {
	var c Config
	c.Server.Addr = ":3000"
	c.Server.AllowedOrigin = "http://localhost:3000"
	c.Server.ReadHeaderTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 5 * time.Second
	c.Server.SessionRateLimit = 30
	c.Map.Style = constants.DefaultMapStyle
	c.Map.Container = constants.DefaultMapContainer
	c.LocationSource.Type = SourceBrowser
	c.LocationSource.Interval = 5 * time.Second
	c.LocationSource.Timeout = 30 * time.Second
	c.LocationSource.MaximumAge = 5 * time.Second
	c.LocationSource.GPSDeviceBaudRate = 9600
	c.MQTT.ClientID = "geo-checkin"
	c.MQTT.Topic = "owntracks/+/+"
	c.Logging.Level = "info"
	return &c
}

// LoadConfig loads the YAML configuration from the specified file on top of the defaults.
// A missing file yields the defaults. The map token may be overridden from the environment.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()

	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := fileClient.ReadYamlFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
	}

	if token := os.Getenv(MapTokenEnv); token != "" {
		config.Map.AccessToken = token
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.LocationSource.Type {
	case SourceBrowser:
	case SourceGPS:
		if c.LocationSource.GPSDevicePort == "" {
			return fmt.Errorf("location_source.gps_device_port is required for %q", SourceGPS)
		}
	case SourceGoogle:
		if c.LocationSource.MapsAPIKey == "" {
			return fmt.Errorf("location_source.maps_api_key is required for %q", SourceGoogle)
		}
	case SourceMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.broker and mqtt.topic are required for %q", SourceMQTT)
		}
	default:
		return fmt.Errorf("unknown location_source.type %q", c.LocationSource.Type)
	}

	polled := c.LocationSource.Type == SourceGPS || c.LocationSource.Type == SourceGoogle
	if polled && c.LocationSource.Interval <= 0 {
		return fmt.Errorf("location_source.interval must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// LocationOptions returns the request options for position sources.
func (c *Config) LocationOptions() location.Options {
	return location.Options{
		EnableHighAccuracy: c.LocationSource.EnableHighAccuracy,
		Timeout:            c.LocationSource.Timeout,
		MaximumAge:         c.LocationSource.MaximumAge,
	}
}
