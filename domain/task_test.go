package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

func TestTaskMarshalIncludesNullDueDate(t *testing.T) {
	task := Task{ID: uuid.New(), Name: "Title", Status: StatusPending, Priority: PriorityBlue, IsActive: true}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"due_date\":null") {
		t.Fatalf("expected due_date field to be null, got %s", payload)
	}
	if !strings.Contains(string(payload), "\"is_active\":true") {
		t.Fatalf("expected is_active field to be present, got %s", payload)
	}
}

func TestTaskMarshalUsesWireEnumValues(t *testing.T) {
	due := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	task := Task{ID: uuid.New(), Name: "x", DueDate: &due, Status: StatusInProgress, Priority: PriorityRed}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	for _, want := range []string{`"status":"In Progress"`, `"priority":"Red"`, `"due_date":"2025-10-15T10:00:00Z"`} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("expected %s in %s", want, payload)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	for _, bad := range []string{"", "pending", "in progress", "Closed"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParsePriority(t *testing.T) {
	for _, p := range Priorities {
		got, err := ParsePriority(string(p))
		if err != nil || got != p {
			t.Fatalf("ParsePriority(%q) = %q, %v", p, got, err)
		}
	}
	if _, err := ParsePriority("Green"); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestCreateTaskInputValidate(t *testing.T) {
	bad := Status("Closed")
	tests := map[string]struct {
		in     CreateTaskInput
		fields []string
	}{
		"valid":          {in: CreateTaskInput{Name: "ok"}},
		"empty name":     {in: CreateTaskInput{Name: ""}, fields: []string{"name"}},
		"blank name":     {in: CreateTaskInput{Name: "   "}, fields: []string{"name"}},
		"long name":      {in: CreateTaskInput{Name: strings.Repeat("a", MaxNameLength+1)}, fields: []string{"name"}},
		"max name":       {in: CreateTaskInput{Name: strings.Repeat("ä", MaxNameLength)}},
		"unknown status": {in: CreateTaskInput{Name: "ok", Status: &bad}, fields: []string{"status"}},
		"several":        {in: CreateTaskInput{Status: &bad}, fields: []string{"name", "status"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.in.Validate()
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Fatalf("expected fields %v, got %#v", tt.fields, verr.Fields)
			}
			for i, f := range tt.fields {
				if verr.Fields[i].Field != f {
					t.Fatalf("expected field %q at %d, got %q", f, i, verr.Fields[i].Field)
				}
			}
		})
	}
}

func TestNotFoundErrorMatchesSentinel(t *testing.T) {
	id := uuid.New()
	var err error = NotFoundError{ID: id}
	if !strings.Contains(err.Error(), id.String()) {
		t.Fatalf("expected id in message, got %q", err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected NotFoundError to match ErrNotFound")
	}
}
