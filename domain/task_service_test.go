package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)

	task, err := svc.Create(context.Background(), CreateTaskInput{Name: "X"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != StatusPending || task.Priority != PriorityBlue {
		t.Fatalf("expected Pending/Blue defaults, got %s/%s", task.Status, task.Priority)
	}
	if !task.IsActive {
		t.Fatal("expected new task to be active")
	}
	if task.DueDate != nil {
		t.Fatalf("expected no due date, got %v", task.DueDate)
	}
}

func TestCreateKeepsSuppliedFields(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	due := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

	task, err := svc.Create(context.Background(), CreateTaskInput{
		Name:     "Test Task",
		DueDate:  &due,
		Status:   ptr(StatusInProgress),
		Priority: ptr(PriorityRed),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != StatusInProgress || task.Priority != PriorityRed {
		t.Fatalf("unexpected status/priority: %s/%s", task.Status, task.Priority)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Fatalf("unexpected due date: %v", task.DueDate)
	}
}

func TestCreateRejectsInvalidInputBeforeStore(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)

	_, err := svc.Create(context.Background(), CreateTaskInput{Name: ""})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.tasks) != 0 {
		t.Fatalf("expected no insert, got %d tasks", len(store.tasks))
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	svc := NewTaskService(newFakeStore(), nil)

	_, err := svc.Get(context.Background(), uuid.Nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.ID != uuid.Nil {
		t.Fatalf("expected NotFoundError carrying id, got %#v", err)
	}
}

func TestGetPropagatesStorageError(t *testing.T) {
	store := newFakeStore()
	store.err = &StorageError{Op: "get", Err: errors.New("connection refused")}
	svc := NewTaskService(store, nil)

	_, err := svc.Get(context.Background(), uuid.New())
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("storage error must not look like not found")
	}
}

func TestUpdateChangesOnlyPresentFields(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	due := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	orig, err := svc.Create(ctx, CreateTaskInput{Name: "keep", DueDate: &due, Priority: ptr(PriorityYellow)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, orig.ID, UpdateTaskInput{Status: ptr(StatusDone)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusDone {
		t.Fatalf("expected status Done, got %s", updated.Status)
	}
	want := orig
	want.Status = StatusDone
	if !reflect.DeepEqual(updated, want) {
		t.Fatalf("unexpected fields changed:\n got %#v\nwant %#v", updated, want)
	}
}

func TestUpdateDueDateSetAndClear(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	orig, err := svc.Create(ctx, CreateTaskInput{Name: "dated"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	due := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	withDue, err := svc.Update(ctx, orig.ID, UpdateTaskInput{DueDate: &due})
	if err != nil {
		t.Fatalf("set due date: %v", err)
	}
	if withDue.DueDate == nil || !withDue.DueDate.Equal(due) {
		t.Fatalf("expected due date %v, got %v", due, withDue.DueDate)
	}

	cleared, err := svc.Update(ctx, orig.ID, UpdateTaskInput{ClearDueDate: true})
	if err != nil {
		t.Fatalf("clear due date: %v", err)
	}
	if cleared.DueDate != nil {
		t.Fatalf("expected due date cleared, got %v", cleared.DueDate)
	}
}

func TestUpdateDoesNotMutateLoadedTask(t *testing.T) {
	orig := Task{ID: uuid.New(), Name: "a", Status: StatusPending, Priority: PriorityBlue, IsActive: true}
	name := "b"
	next := ApplyUpdate(orig, UpdateTaskInput{Name: &name})
	if orig.Name != "a" {
		t.Fatalf("expected original untouched, got %q", orig.Name)
	}
	if next.Name != "b" {
		t.Fatalf("expected copy updated, got %q", next.Name)
	}
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	orig, _ := svc.Create(ctx, CreateTaskInput{Name: "x"})

	_, err := svc.Update(ctx, orig.ID, UpdateTaskInput{Name: ptr(""), Priority: ptr(Priority("Green"))})
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no save, got %d", store.saves)
	}
}

func TestUpdateMissingTask(t *testing.T) {
	svc := NewTaskService(newFakeStore(), nil)
	_, err := svc.Update(context.Background(), uuid.New(), UpdateTaskInput{Status: ptr(StatusDone)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteIsSoftAndNotReappliable(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	task, _ := svc.Create(ctx, CreateTaskInput{Name: "gone"})

	deleted, err := svc.Delete(ctx, task.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.IsActive {
		t.Fatal("expected deleted task to be inactive")
	}
	if _, ok := store.tasks[task.ID]; !ok {
		t.Fatal("expected row to remain in the store")
	}

	if _, err := svc.Get(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := svc.Delete(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
	page, err := svc.List(ctx, ListTasksInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, it := range page.Items {
		if it.ID == task.ID {
			t.Fatal("deleted task listed")
		}
	}
}

func TestBuildListQueryDefaults(t *testing.T) {
	q := BuildListQuery(ListTasksInput{})
	if q.Offset != 0 || q.Limit != DefaultLimit {
		t.Fatalf("unexpected paging: offset=%d limit=%d", q.Offset, q.Limit)
	}
	if q.Order != OrderCreatedAtDesc {
		t.Fatalf("unexpected order %v", q.Order)
	}
	want := []Predicate{{Field: FieldIsActive, Op: OpEq, Value: true}}
	if !reflect.DeepEqual(q.Predicates, want) {
		t.Fatalf("unexpected predicates: %#v", q.Predicates)
	}
}

func TestBuildListQueryAllFilters(t *testing.T) {
	d1 := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 10, 31, 23, 59, 59, 0, time.UTC)
	c1 := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	c2 := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	q := BuildListQuery(ListTasksInput{
		Page:           3,
		Limit:          25,
		Status:         ptr(StatusPaused),
		Priority:       ptr(PriorityYellow),
		Search:         "Report",
		DueDateStart:   &d1,
		DueDateEnd:     &d2,
		CreatedAtStart: &c1,
		CreatedAtEnd:   &c2,
	})
	if q.Offset != 50 || q.Limit != 25 {
		t.Fatalf("unexpected paging: offset=%d limit=%d", q.Offset, q.Limit)
	}
	want := []Predicate{
		{Field: FieldIsActive, Op: OpEq, Value: true},
		{Field: FieldName, Op: OpContainsFold, Value: "Report"},
		{Field: FieldStatus, Op: OpEq, Value: StatusPaused},
		{Field: FieldPriority, Op: OpEq, Value: PriorityYellow},
		{Field: FieldDueDate, Op: OpGte, Value: d1},
		{Field: FieldDueDate, Op: OpLte, Value: d2},
		{Field: FieldCreatedAt, Op: OpGte, Value: c1},
		{Field: FieldCreatedAt, Op: OpLte, Value: c2},
	}
	if !reflect.DeepEqual(q.Predicates, want) {
		t.Fatalf("unexpected predicates:\n got %#v\nwant %#v", q.Predicates, want)
	}
}

func TestBuildListQueryHugePaging(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		limit  int
		offset int
	}{
		{"product wraps to zero", 1<<61 + 1, 8, math.MaxInt},
		{"product wraps negative", 1 << 62, 4, math.MaxInt},
		{"max page and limit", math.MaxInt, math.MaxInt, math.MaxInt},
		{"max limit first page", 1, math.MaxInt, 0},
		{"max limit second page", 2, math.MaxInt, math.MaxInt},
		{"large but representable", 1<<31 + 1, 1 << 31, 1 << 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildListQuery(ListTasksInput{Page: tt.page, Limit: tt.limit})
			if q.Offset != tt.offset || q.Limit != tt.limit {
				t.Fatalf("unexpected paging: offset=%d limit=%d", q.Offset, q.Limit)
			}
		})
	}
}

func TestListHugePageIsEmpty(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = svc.Create(ctx, CreateTaskInput{Name: fmt.Sprintf("task %d", i)})
	}

	page, err := svc.List(ctx, ListTasksInput{Page: 1<<61 + 1, Limit: 8})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 0 || page.Total != 3 || page.Page != 1<<61+1 {
		t.Fatalf("expected an empty far page, got %#v", page)
	}
}

func TestListRejectsNegativePaging(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	_, err := svc.List(context.Background(), ListTasksInput{Page: -1})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.queries) != 0 {
		t.Fatal("store must not be queried")
	}
}

func TestListFiltersAreConjunctive(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	due := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)

	combos := []CreateTaskInput{
		{Name: "alpha red done", Status: ptr(StatusDone), Priority: ptr(PriorityRed), DueDate: &due},
		{Name: "alpha red pending", Status: ptr(StatusPending), Priority: ptr(PriorityRed), DueDate: &due},
		{Name: "alpha blue done", Status: ptr(StatusDone), Priority: ptr(PriorityBlue), DueDate: &due},
		{Name: "beta red done", Status: ptr(StatusDone), Priority: ptr(PriorityRed), DueDate: &due},
		{Name: "ALPHA red done undated", Status: ptr(StatusDone), Priority: ptr(PriorityRed)},
	}
	for _, in := range combos {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	start := due.Add(-time.Hour)
	page, err := svc.List(ctx, ListTasksInput{
		Search:       "Alpha",
		Status:       ptr(StatusDone),
		Priority:     ptr(PriorityRed),
		DueDateStart: &start,
		Limit:        100,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Name != "alpha red done" {
		t.Fatalf("expected only the task satisfying every filter, got %#v", page.Items)
	}
}

func TestListPaginationCoversEveryTaskOnce(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	for i := 0; i < 23; i++ {
		if _, err := svc.Create(ctx, CreateTaskInput{Name: fmt.Sprintf("task %02d", i)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	const limit = 5
	seen := map[uuid.UUID]bool{}
	var prev time.Time
	for page := 1; ; page++ {
		res, err := svc.List(ctx, ListTasksInput{Page: page, Limit: limit})
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if res.Total != 23 {
			t.Fatalf("expected stable total 23, got %d", res.Total)
		}
		if res.Page != page || res.Limit != limit {
			t.Fatalf("unexpected page descriptor %d/%d", res.Page, res.Limit)
		}
		for _, it := range res.Items {
			if seen[it.ID] {
				t.Fatalf("task %s returned twice", it.ID)
			}
			if !prev.IsZero() && it.CreatedAt.After(prev) {
				t.Fatal("expected newest first ordering")
			}
			prev = it.CreatedAt
			seen[it.ID] = true
		}
		if int64(page*limit) >= res.Total {
			break
		}
	}
	if len(seen) != 23 {
		t.Fatalf("expected 23 distinct tasks, got %d", len(seen))
	}
}

func TestListPastLastPageIsEmpty(t *testing.T) {
	store := newFakeStore()
	svc := NewTaskService(store, nil)
	ctx := context.Background()
	_, _ = svc.Create(ctx, CreateTaskInput{Name: "only"})

	page, err := svc.List(ctx, ListTasksInput{Page: 9, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.Total != 1 {
		t.Fatalf("expected empty non-nil items with total 1, got %#v", page)
	}
}

func TestNotifierReceivesEveryWrite(t *testing.T) {
	store := newFakeStore()
	n := &recordingNotifier{}
	svc := NewTaskService(store, n)
	ctx := context.Background()

	task, _ := svc.Create(ctx, CreateTaskInput{Name: "n"})
	_, _ = svc.Update(ctx, task.ID, UpdateTaskInput{Status: ptr(StatusDone)})
	_, _ = svc.Delete(ctx, task.ID)
	_, _ = svc.Delete(ctx, task.ID)

	want := []string{TaskCreated, TaskUpdated, TaskDeleted}
	if got := n.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events %v", got)
	}
	if n.events[2].Task.IsActive {
		t.Fatal("expected delete event to carry the inactive task")
	}
}

func TestNotifierSkippedOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = &StorageError{Op: "insert", Err: errors.New("boom")}
	n := &recordingNotifier{}
	svc := NewTaskService(store, n)

	if _, err := svc.Create(context.Background(), CreateTaskInput{Name: "n"}); err == nil {
		t.Fatal("expected error")
	}
	if len(n.Types()) != 0 {
		t.Fatal("expected no events on failure")
	}
}
