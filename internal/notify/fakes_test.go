package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/webpush"
)

// memTaskStore is an in-memory store.TaskStore with the same filtering and
// guarded-update semantics as the Postgres store. Like the driver, it fails
// calls made on a context that is already done.
type memTaskStore struct {
	mu       sync.Mutex
	tasks    map[int64]*domain.Task
	findErr  error
	setErr   error
	findCall int
}

func newMemTaskStore(tasks ...domain.Task) *memTaskStore {
	s := &memTaskStore{tasks: make(map[int64]*domain.Task)}
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	return s
}

func (s *memTaskStore) FindDue(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCall++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.findErr != nil {
		return nil, s.findErr
	}

	due := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if t.IsDueWithin(start, end) {
			due = append(due, *t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].DueAt.Equal(*due[j].DueAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].DueAt.Before(*due[j].DueAt)
	})
	return due, nil
}

func (s *memTaskStore) TrySetReminderSent(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.setErr != nil {
		return false, s.setErr
	}
	t, ok := s.tasks[id]
	if !ok || t.ReminderSent {
		return false, nil
	}
	t.MarkReminderSent()
	return true, nil
}

func (s *memTaskStore) reschedule(id int64, due time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].SetDueAt(&due)
}

func (s *memTaskStore) reminderSent(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].ReminderSent
}

// fakePush answers with a result chosen per endpoint and counts sends per task.
type fakePush struct {
	mu      sync.Mutex
	results map[string]webpush.Result
	block   map[string]bool
	panics  map[string]bool
	sends   map[int64]int
	titles  []string
	bodies  []string
}

func newFakePush() *fakePush {
	return &fakePush{
		results: make(map[string]webpush.Result),
		block:   make(map[string]bool),
		panics:  make(map[string]bool),
		sends:   make(map[int64]int),
	}
}

func (p *fakePush) Send(ctx context.Context, sub domain.Subscription, title, body string, taskID int64) webpush.Result {
	p.mu.Lock()
	p.sends[taskID]++
	p.titles = append(p.titles, title)
	p.bodies = append(p.bodies, body)
	res, ok := p.results[sub.Endpoint]
	block := p.block[sub.Endpoint]
	shouldPanic := p.panics[sub.Endpoint]
	p.mu.Unlock()

	if shouldPanic {
		panic("push client exploded")
	}
	if block {
		<-ctx.Done()
		return webpush.Result{Kind: webpush.Transient, Err: ctx.Err()}
	}
	if !ok {
		return webpush.Result{Kind: webpush.Delivered, StatusCode: 201}
	}
	return res
}

func (p *fakePush) sendCount(taskID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sends[taskID]
}

// fakeEmail records sends and fails when err is set.
type fakeEmail struct {
	mu    sync.Mutex
	err   error
	sends map[int64][]string
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{sends: make(map[int64][]string)}
}

func (e *fakeEmail) Send(_ context.Context, to string, task domain.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	if task.DueAt == nil {
		return errors.New("task has no due date")
	}
	e.sends[task.ID] = append(e.sends[task.ID], to)
	return nil
}

func (e *fakeEmail) sendCount(taskID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sends[taskID])
}

// staticSubs is a store.SubscriptionStore backed by a fixed list per owner.
type staticSubs struct {
	mu      sync.Mutex
	byOwner map[string][]domain.Subscription
	err     error
	panics  bool
	deleted []string
	touched []string
}

func (s *staticSubs) FindByOwner(_ context.Context, owner string) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("subscription store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Subscription(nil), s.byOwner[owner]...), nil
}

func (s *staticSubs) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, endpoint)
	return nil
}

func (s *staticSubs) TouchLastUsed(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, endpoint)
	return nil
}

// staticIdentity resolves every owner to the same address unless overridden.
type staticIdentity struct {
	address string
	err     error
}

func (i staticIdentity) EmailOf(context.Context, string) (string, error) {
	return i.address, i.err
}

func timePtr(t time.Time) *time.Time { return &t }

func dueTask(id int64, owner string, due time.Time) domain.Task {
	return domain.Task{
		ID:                   id,
		OwnerID:              owner,
		Title:                "Task",
		Priority:             domain.PriorityHigh,
		DueAt:                timePtr(due),
		NotificationsEnabled: true,
	}
}
