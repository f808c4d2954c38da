package mocks

import (
	"context"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockSubscriptionStore is a mock of store.SubscriptionStore.
type MockSubscriptionStore struct {
	mock.Mock
}

var _ store.SubscriptionStore = (*MockSubscriptionStore)(nil)

// FindByOwner is a mock implementation of store.SubscriptionStore.FindByOwner
func (m *MockSubscriptionStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if subs, ok := args.Get(0).([]domain.Subscription); ok {
		return subs, args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteByEndpoint is a mock implementation of store.SubscriptionStore.DeleteByEndpoint
func (m *MockSubscriptionStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

// TouchLastUsed is a mock implementation of store.SubscriptionStore.TouchLastUsed
func (m *MockSubscriptionStore) TouchLastUsed(ctx context.Context, endpoint string) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}
