package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/arsalyy/greeka-todo-api/domain"
)

// Tasks is the task use-case surface the handlers depend on.
type Tasks interface {
	Create(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
	List(ctx context.Context, in domain.ListTasksInput) (domain.Page, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, in domain.UpdateTaskInput) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) (domain.Task, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
