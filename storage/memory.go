package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arsalyy/greeka-todo-api/domain"
)

var errUnsupportedOrder = errors.New("unsupported sort order")

// MemoryStore keeps tasks in process. It backs the service when no database
// is configured and is used by the HTTP tests.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]domain.Task
	clock clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: map[uuid.UUID]domain.Task{}}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, d domain.TaskDraft) (domain.Task, error) {
	t := domain.Task{
		ID:        uuid.New(),
		Name:      d.Name,
		DueDate:   copyTime(d.DueDate),
		Status:    d.Status,
		Priority:  d.Priority,
		CreatedAt: s.clock.next(),
		IsActive:  true,
	}
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	return cloneTask(t), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok || !t.IsActive {
		return nil, nil
	}
	out := cloneTask(t)
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok {
		return domain.Task{}, &domain.StorageError{Op: "save", Err: domain.ErrRowMissing}
	}
	t.CreatedAt = cur.CreatedAt
	t.DueDate = copyTime(t.DueDate)
	s.tasks[t.ID] = t
	return cloneTask(t), nil
}

func (s *MemoryStore) Query(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int64, error) {
	if q.Order != domain.OrderCreatedAtDesc {
		return nil, 0, &domain.StorageError{Op: "query", Err: errUnsupportedOrder}
	}
	s.mu.RLock()
	matched := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if domain.MatchesAll(q.Predicates, t) {
			matched = append(matched, cloneTask(t))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if q.Offset < 0 || q.Offset >= len(matched) {
		return []domain.Task{}, total, nil
	}
	end := len(matched)
	if q.Limit >= 0 && q.Limit < end-q.Offset {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

func cloneTask(t domain.Task) domain.Task {
	t.DueDate = copyTime(t.DueDate)
	return t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
