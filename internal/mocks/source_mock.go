package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/geo-checkin/pkg/location"
)

// MockSource is a mock implementation of the location.Source interface.
// The last callbacks handed to it are kept so tests can drive them.
type MockSource struct {
	mock.Mock

	OneShotSuccess location.SuccessFunc
	OneShotError   location.ErrorFunc
	WatchSuccess   location.SuccessFunc
	WatchError     location.ErrorFunc
}

func (m *MockSource) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSource) GetCurrentPosition(onSuccess location.SuccessFunc, onError location.ErrorFunc, opts location.Options) {
	m.OneShotSuccess = onSuccess
	m.OneShotError = onError
	m.Called(opts)
}

func (m *MockSource) WatchPosition(onSuccess location.SuccessFunc, onError location.ErrorFunc, opts location.Options) location.WatchID {
	m.WatchSuccess = onSuccess
	m.WatchError = onError
	args := m.Called(opts)
	return args.Get(0).(location.WatchID)
}

func (m *MockSource) ClearWatch(id location.WatchID) {
	m.Called(id)
}

// MockProvider is a mock implementation of the location.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetLocation(ctx context.Context) (location.Location, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Location), args.Error(1)
}

func (m *MockProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}
