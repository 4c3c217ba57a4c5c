package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/adanyl0v/go-task-tracker/internal/models"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
)

var errStoreDown = errors.New("store unreachable")

// memoryStore is an in-memory storage backend with failure injection.
type memoryStore struct {
	mu        sync.Mutex
	nextID    int64
	tasks     map[int64]models.Task
	logs      []models.ActivityLog
	logErr    error
	updateErr error
}

var (
	_ storage.TaskStore        = (*memoryStore)(nil)
	_ storage.ActivityLogStore = (*memoryStore)(nil)
)

func newMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[int64]models.Task)}
}

func (m *memoryStore) GetTaskByID(_ context.Context, id int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &task, nil
}

func (m *memoryStore) ListTasks(context.Context) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]int64, 0, len(m.tasks))
	for id := range m.tasks {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	tasks := make([]*models.Task, 0, len(keys))
	for _, id := range keys {
		task := m.tasks[id]
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (m *memoryStore) CreateTask(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	task.ID = m.nextID
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryStore) UpdateTask(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.tasks[task.ID]; !ok {
		return storage.ErrNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryStore) DeleteTask(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

func (m *memoryStore) CreateActivityLog(_ context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.logErr != nil {
		return m.logErr
	}
	entry.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memoryStore) ListActivityLogs(context.Context) ([]*models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*models.ActivityLog, len(m.logs))
	for i := range m.logs {
		entry := m.logs[i]
		entries[i] = &entry
	}
	return entries, nil
}

func (m *memoryStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.logs))
	for i, entry := range m.logs {
		out[i] = entry.Action
	}
	return out
}
