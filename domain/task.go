package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxNameLength is the longest task name accepted, counted in characters.
const MaxNameLength = 255

// Status is the workflow state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusDone       Status = "Done"
	StatusInProgress Status = "In Progress"
	StatusPaused     Status = "Paused"
)

// Statuses lists every accepted status in declaration order.
var Statuses = []Status{StatusPending, StatusDone, StatusInProgress, StatusPaused}

// Priority is the urgency colour of a task.
type Priority string

const (
	PriorityRed    Priority = "Red"
	PriorityYellow Priority = "Yellow"
	PriorityBlue   Priority = "Blue"
)

// Priorities lists every accepted priority in declaration order.
var Priorities = []Priority{PriorityRed, PriorityYellow, PriorityBlue}

const (
	DefaultStatus   = StatusPending
	DefaultPriority = PriorityBlue
)

// Task is a single tracked work item.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	DueDate   *time.Time `json:"due_date"`
	Status    Status     `json:"status"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	IsActive  bool       `json:"is_active"`
}

// TaskDraft carries the caller supplied part of a new task. The store assigns
// the id and creation time.
type TaskDraft struct {
	Name     string
	DueDate  *time.Time
	Status   Status
	Priority Priority
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// ParseStatus converts a wire value into a Status. Matching is exact.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("must be one of: %s", joinValues(Statuses))
	}
	return st, nil
}

// ParsePriority converts a wire value into a Priority. Matching is exact.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("must be one of: %s", joinValues(Priorities))
	}
	return p, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
