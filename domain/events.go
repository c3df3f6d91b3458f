package domain

import "context"

const (
	TaskCreated = "task-created"
	TaskUpdated = "task-updated"
	TaskDeleted = "task-deleted"
)

// TaskEvent describes a committed change to a task.
type TaskEvent struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Task   Task   `json:"task"`
	Time   int64  `json:"time"`
}

// ChangeNotifier receives task events after the store accepted a write.
// Implementations must not block the caller for long.
type ChangeNotifier interface {
	Notify(ctx context.Context, ev TaskEvent)
}
