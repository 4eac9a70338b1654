package location

import (
	"context"

	"googlemaps.github.io/maps"
)

// Geolocator is the subset of the Maps client used for network geolocation.
type Geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     Geolocator // Maps API client for making geolocation requests
	modemIndex int        // ModemManager index queried for the serving cell

	scanWiFi  func(ctx context.Context) ([]maps.WiFiAccessPoint, error)
	scanCells func(ctx context.Context, modemIndex int) ([]maps.CellTower, error)
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return NewGoogleGeolocationProviderWithClient(c, modemIndex), nil
}

// NewGoogleGeolocationProviderWithClient builds a provider around an existing client.
func NewGoogleGeolocationProviderWithClient(client Geolocator, modemIndex int) *GoogleGeolocationProvider {
	return &GoogleGeolocationProvider{
		client:     client,
		modemIndex: modemIndex,
		scanWiFi:   getWiFiAccessPoints,
		scanCells:  getCellTowers,
	}
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Radio scans are best effort; without them the lookup falls back to the caller's IP.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	if wifiAPs, err := g.scanWiFi(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := g.scanCells(ctx, g.modemIndex); err == nil {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Location{}, err
	}

	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// Close is a no-op; the Maps client holds no long-lived resources.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
