package mocks

import (
	"context"

	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockIdentityResolver is a mock of store.IdentityResolver.
type MockIdentityResolver struct {
	mock.Mock
}

var _ store.IdentityResolver = (*MockIdentityResolver)(nil)

// EmailOf is a mock implementation of store.IdentityResolver.EmailOf
func (m *MockIdentityResolver) EmailOf(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}
