package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TaskStore persists tasks and executes filtered reads.
type TaskStore interface {
	// Insert stores a new task and returns it with the assigned id and
	// creation time.
	Insert(ctx context.Context, draft TaskDraft) (Task, error)
	// GetByID returns the active task with id, or nil when there is none.
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// Save overwrites every mutable column of an existing task.
	Save(ctx context.Context, t Task) (Task, error)
	// Query returns one page of matching tasks and the total match count.
	Query(ctx context.Context, q TaskQuery) ([]Task, int64, error)
}

// TaskService applies the task rules on top of a TaskStore.
type TaskService struct {
	st       TaskStore
	notifier ChangeNotifier
}

// NewTaskService creates a service. notifier may be nil.
func NewTaskService(st TaskStore, notifier ChangeNotifier) TaskService {
	return TaskService{st: st, notifier: notifier}
}

// Create validates the input, applies defaults and inserts the task.
func (s TaskService) Create(ctx context.Context, in CreateTaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	draft := TaskDraft{
		Name:     in.Name,
		DueDate:  in.DueDate,
		Status:   DefaultStatus,
		Priority: DefaultPriority,
	}
	if in.Status != nil {
		draft.Status = *in.Status
	}
	if in.Priority != nil {
		draft.Priority = *in.Priority
	}
	t, err := s.st.Insert(ctx, draft)
	if err != nil {
		return Task{}, err
	}
	s.notify(ctx, TaskCreated, t)
	return t, nil
}

// List runs the filtered, paginated read described by in.
func (s TaskService) List(ctx context.Context, in ListTasksInput) (Page, error) {
	if err := in.Validate(); err != nil {
		return Page{}, err
	}
	q := BuildListQuery(in)
	items, total, err := s.st.Query(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Task{}
	}
	page, limit := pageAndLimit(in)
	return Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get returns the active task with id.
func (s TaskService) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	t, err := s.st.GetByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t == nil {
		return Task{}, NotFoundError{ID: id}
	}
	return *t, nil
}

// Update applies the present fields of in to the active task with id.
func (s TaskService) Update(ctx context.Context, id uuid.UUID, in UpdateTaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	saved, err := s.st.Save(ctx, ApplyUpdate(current, in))
	if err != nil {
		return Task{}, err
	}
	s.notify(ctx, TaskUpdated, saved)
	return saved, nil
}

// Delete marks the active task with id as inactive. Deleting an already
// deleted task reports NotFoundError.
func (s TaskService) Delete(ctx context.Context, id uuid.UUID) (Task, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	current.IsActive = false
	saved, err := s.st.Save(ctx, current)
	if err != nil {
		return Task{}, err
	}
	s.notify(ctx, TaskDeleted, saved)
	return saved, nil
}

// ApplyUpdate returns a copy of t with the present fields of in applied.
func ApplyUpdate(t Task, in UpdateTaskInput) Task {
	if in.Name != nil {
		t.Name = *in.Name
	}
	switch {
	case in.ClearDueDate:
		t.DueDate = nil
	case in.DueDate != nil:
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	return t
}

// BuildListQuery turns list filters into a store query. The active-row
// predicate is always first and cannot be overridden.
func BuildListQuery(in ListTasksInput) TaskQuery {
	preds := []Predicate{{Field: FieldIsActive, Op: OpEq, Value: true}}
	if in.Search != "" {
		preds = append(preds, Predicate{Field: FieldName, Op: OpContainsFold, Value: in.Search})
	}
	if in.Status != nil {
		preds = append(preds, Predicate{Field: FieldStatus, Op: OpEq, Value: *in.Status})
	}
	if in.Priority != nil {
		preds = append(preds, Predicate{Field: FieldPriority, Op: OpEq, Value: *in.Priority})
	}
	if in.DueDateStart != nil {
		preds = append(preds, Predicate{Field: FieldDueDate, Op: OpGte, Value: *in.DueDateStart})
	}
	if in.DueDateEnd != nil {
		preds = append(preds, Predicate{Field: FieldDueDate, Op: OpLte, Value: *in.DueDateEnd})
	}
	if in.CreatedAtStart != nil {
		preds = append(preds, Predicate{Field: FieldCreatedAt, Op: OpGte, Value: *in.CreatedAtStart})
	}
	if in.CreatedAtEnd != nil {
		preds = append(preds, Predicate{Field: FieldCreatedAt, Op: OpLte, Value: *in.CreatedAtEnd})
	}
	page, limit := pageAndLimit(in)
	return TaskQuery{
		Predicates: preds,
		Order:      OrderCreatedAtDesc,
		Offset:     pageOffset(page, limit),
		Limit:      limit,
	}
}

// pageOffset returns the number of rows before page. Offsets past math.MaxInt
// are clamped, which still lies beyond any stored row.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func pageAndLimit(in ListTasksInput) (int, int) {
	page, limit := in.Page, in.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return page, limit
}

func (s TaskService) notify(ctx context.Context, typ string, t Task) {
	if s.notifier == nil {
		return
	}
	ev := TaskEvent{
		ID:     uuid.NewString(),
		Type:   typ,
		TaskID: t.ID.String(),
		Task:   t,
		Time:   time.Now().UnixNano(),
	}
	log.WithFields(log.Fields{"task": ev.TaskID, "type": typ}).Debug("task change")
	s.notifier.Notify(ctx, ev)
}
