package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	args := m.Called(ctx, b64image, folder)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, fileName string) (string, error) {
	args := m.Called(ctx, fileName)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, fileName string) error {
	args := m.Called(ctx, fileName)
	return args.Error(0)
}

// StoredFolders lists the folder of every upload, in call order.
func (m *MockStorage) StoredFolders() []string {
	var folders []string
	for _, call := range m.Calls {
		if call.Method == "Store" {
			folders = append(folders, call.Arguments.String(2))
		}
	}
	return folders
}
