package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]Task
	clock   time.Time
	err     error
	queries []TaskQuery
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks: map[uuid.UUID]Task{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) Insert(ctx context.Context, d TaskDraft) (Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Task{}, f.err
	}
	f.clock = f.clock.Add(time.Second)
	t := Task{
		ID:        uuid.New(),
		Name:      d.Name,
		DueDate:   d.DueDate,
		Status:    d.Status,
		Priority:  d.Priority,
		CreatedAt: f.clock,
		IsActive:  true,
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok || !t.IsActive {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) Save(ctx context.Context, t Task) (Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Task{}, f.err
	}
	if _, ok := f.tasks[t.ID]; !ok {
		return Task{}, &StorageError{Op: "save", Err: ErrRowMissing}
	}
	f.saves++
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) Query(ctx context.Context, q TaskQuery) ([]Task, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, 0, f.err
	}
	var matched []Task
	for _, t := range f.tasks {
		if MatchesAll(q.Predicates, t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []Task{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []TaskEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, ev TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
