package mqtt_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benmeehan/geo-checkin/internal/mocks"
	"github.com/benmeehan/geo-checkin/pkg/mqtt"
)

func TestInitialize_RequiresBroker(t *testing.T) {
	svc := mqtt.NewMqttService(new(mocks.MockFileOperations))

	err := svc.Initialize(mqtt.Settings{ClientID: "geo-checkin"})

	assert.EqualError(t, err, "mqtt broker address is empty")
}

func TestInitialize_CACertificateUnreadable(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "/etc/ssl/broker-ca.pem").Return(nil, errors.New("permission denied"))
	svc := mqtt.NewMqttService(fileClient)

	err := svc.Initialize(mqtt.Settings{Broker: "ssl://broker:8883", ClientID: "geo-checkin", CACertificate: "/etc/ssl/broker-ca.pem"})

	assert.ErrorContains(t, err, "failed to read CA certificate")
	fileClient.AssertExpectations(t)
}

func TestInitialize_CACertificateInvalid(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("ReadFileRaw", "ca.pem").Return([]byte("not a certificate"), nil)
	svc := mqtt.NewMqttService(fileClient)

	err := svc.Initialize(mqtt.Settings{Broker: "ssl://broker:8883", ClientID: "geo-checkin", CACertificate: "ca.pem"})

	assert.EqualError(t, err, "failed to append CA certificate")
}

func TestDisconnect_BeforeInitialize(t *testing.T) {
	svc := mqtt.NewMqttService(new(mocks.MockFileOperations))

	assert.NotPanics(t, func() { svc.Disconnect(250) })
}
