package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore is a mock of store.TaskStore.
type MockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// FindDue is a mock implementation of store.TaskStore.FindDue
func (m *MockTaskStore) FindDue(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	args := m.Called(ctx, start, end)
	if tasks, ok := args.Get(0).([]domain.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

// TrySetReminderSent is a mock implementation of store.TaskStore.TrySetReminderSent
func (m *MockTaskStore) TrySetReminderSent(ctx context.Context, taskID int64) (bool, error) {
	args := m.Called(ctx, taskID)
	return args.Bool(0), args.Error(1)
}
