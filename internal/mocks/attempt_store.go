package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockAttemptStore is a mock of store.AttemptStore that also keeps every
// appended attempt for inspection.
type MockAttemptStore struct {
	mock.Mock

	mu       sync.Mutex
	attempts []domain.NotificationAttempt
}

var _ store.AttemptStore = (*MockAttemptStore)(nil)

// Append is a mock implementation of store.AttemptStore.Append
func (m *MockAttemptStore) Append(ctx context.Context, attempt *domain.NotificationAttempt) error {
	args := m.Called(ctx, attempt)
	if err := args.Error(0); err != nil {
		return err
	}

	m.mu.Lock()
	m.attempts = append(m.attempts, *attempt)
	m.mu.Unlock()
	return nil
}

// Attempts returns a copy of the successfully appended attempts.
func (m *MockAttemptStore) Attempts() []domain.NotificationAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.NotificationAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// ByChannel returns the appended attempts for one channel.
func (m *MockAttemptStore) ByChannel(channel domain.Channel) []domain.NotificationAttempt {
	var out []domain.NotificationAttempt
	for _, a := range m.Attempts() {
		if a.Channel == channel {
			out = append(out, a)
		}
	}
	return out
}
