package mocks

import (
	"context"

	"github.com/cear54/api-t-cuida/common/notifications"

	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, notification notifications.Notification) (string, error) {
	args := m.Called(ctx, notification)
	return args.String(0), args.Error(1)
}

func (m *MockSender) Reset() {
	m.Mock = mock.Mock{}
}
