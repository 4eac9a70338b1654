package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of a registry Service
type MockService struct {
	mock.Mock
	Name  string
	Trace *[]string
}

func (m *MockService) Start() error {
	if m.Trace != nil {
		*m.Trace = append(*m.Trace, "start:"+m.Name)
	}
	args := m.Called()
	return args.Error(0)
}

func (m *MockService) Stop() error {
	if m.Trace != nil {
		*m.Trace = append(*m.Trace, "stop:"+m.Name)
	}
	args := m.Called()
	return args.Error(0)
}
