package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) View(ctx context.Context, tenantID, rawText string) string {
	args := m.Called(ctx, tenantID, rawText)
	return args.String(0)
}
