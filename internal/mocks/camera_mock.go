package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockCamera is a mock implementation of the camera.Component interface.
type MockCamera struct {
	mock.Mock

	OnClose   func()
	OnCapture func(string)
}

func (m *MockCamera) Open(onClose func(), onCapture func(dataURL string)) {
	m.OnClose = onClose
	m.OnCapture = onCapture
	m.Called()
}

func (m *MockCamera) Close() {
	m.Called()
}
