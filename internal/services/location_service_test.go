package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/geo-checkin/internal/mocks"
	"github.com/benmeehan/geo-checkin/internal/services"
	"github.com/benmeehan/geo-checkin/pkg/location"
)

func TestLocationService_Polled(t *testing.T) {
	provider := new(mocks.MockProvider)
	provider.On("Close").Return(nil).Once()
	source := location.NewPollingSource(provider, time.Second, zerolog.Nop())
	svc := services.NewPolledLocationService("gps", source, zerolog.Nop())

	assert.Equal(t, source, svc.Source())
	assert.EqualError(t, svc.Stop(), "location service is not running")

	require.NoError(t, svc.Start())
	assert.EqualError(t, svc.Start(), "location service is already running")

	require.NoError(t, svc.Stop())
	assert.False(t, svc.Source().Available())
	provider.AssertExpectations(t)
}

func TestLocationService_PolledCloseError(t *testing.T) {
	provider := new(mocks.MockProvider)
	provider.On("Close").Return(errors.New("port busy"))
	source := location.NewPollingSource(provider, time.Second, zerolog.Nop())
	svc := services.NewPolledLocationService("gps", source, zerolog.Nop())
	require.NoError(t, svc.Start())

	assert.EqualError(t, svc.Stop(), "port busy")
}

func TestLocationService_MQTT(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Subscribe", "owntracks/+/+", byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil)).Once()
	client.On("Unsubscribe", []string{"owntracks/+/+"}).Return(mocks.NewCompletedToken(nil)).Once()
	client.On("Disconnect", uint(250)).Return().Once()
	source := location.NewMQTTSource(client, "owntracks/+/+", 1, zerolog.Nop())
	svc := services.NewMQTTLocationService(source, client, zerolog.Nop())

	require.NoError(t, svc.Start())
	assert.True(t, svc.Source().Available())

	require.NoError(t, svc.Stop())
	assert.False(t, svc.Source().Available())
	client.AssertExpectations(t)
}

func TestLocationService_MQTTSubscribeFailure(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Subscribe", "owntracks/+/+", byte(1), mock.Anything).Return(mocks.NewCompletedToken(errors.New("not authorized")))
	source := location.NewMQTTSource(client, "owntracks/+/+", 1, zerolog.Nop())
	svc := services.NewMQTTLocationService(source, client, zerolog.Nop())

	assert.Error(t, svc.Start())
	assert.EqualError(t, svc.Stop(), "location service is not running")
}
