package mocks

import (
	"github.com/stretchr/testify/mock"
)

type MockStringGenerator struct {
	mock.Mock
}

func (m *MockStringGenerator) GenerateUuid() string {
	return m.Called().String(0)
}

func (m *MockStringGenerator) GenerateObjectName(folder, extension string) string {
	return m.Called(folder, extension).String(0)
}

func (m *MockStringGenerator) GeneratePersonName() string {
	return m.Called().String(0)
}
