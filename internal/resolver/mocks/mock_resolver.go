package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"molrelay/internal/resolver"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, token, fileID string) (resolver.FileInfo, error) {
	args := m.Called(ctx, token, fileID)
	return args.Get(0).(resolver.FileInfo), args.Error(1)
}
