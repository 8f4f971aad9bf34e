package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"molrelay/internal/storage"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Stage(ctx context.Context, name string, r io.Reader) error {
	args := m.Called(ctx, name, r)
	return args.Error(0)
}

func (m *MockStore) PublicURL(name string) string {
	args := m.Called(name)
	return args.String(0)
}

func (m *MockStore) ListAll(ctx context.Context) ([]storage.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Entry), args.Error(1)
}

func (m *MockStore) Remove(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
