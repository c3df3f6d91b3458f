package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// CreateTaskInput is a validated create request. Nil pointers fall back to
// defaults.
type CreateTaskInput struct {
	Name     string
	DueDate  *time.Time
	Status   *Status
	Priority *Priority
}

// Validate checks the input and reports every rejected field.
func (in CreateTaskInput) Validate() error {
	verr := &ValidationError{}
	validateName(verr, in.Name)
	if in.Status != nil && !in.Status.Valid() {
		verr.Add("status", "must be one of: "+joinValues(Statuses))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		verr.Add("priority", "must be one of: "+joinValues(Priorities))
	}
	return verr.OrNil()
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged.
// ClearDueDate removes the due date and wins over DueDate.
type UpdateTaskInput struct {
	Name         *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *Status
	Priority     *Priority
}

// Validate checks the present fields.
func (in UpdateTaskInput) Validate() error {
	verr := &ValidationError{}
	if in.Name != nil {
		validateName(verr, *in.Name)
	}
	if in.Status != nil && !in.Status.Valid() {
		verr.Add("status", "must be one of: "+joinValues(Statuses))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		verr.Add("priority", "must be one of: "+joinValues(Priorities))
	}
	return verr.OrNil()
}

// Empty reports whether the update carries no field at all.
func (in UpdateTaskInput) Empty() bool {
	return in.Name == nil && in.DueDate == nil && !in.ClearDueDate && in.Status == nil && in.Priority == nil
}

// ListTasksInput holds the list filters. Zero Page and Limit select the
// defaults; nil pointers and an empty Search impose no constraint.
type ListTasksInput struct {
	Page           int
	Limit          int
	Status         *Status
	Priority       *Priority
	Search         string
	DueDateStart   *time.Time
	DueDateEnd     *time.Time
	CreatedAtStart *time.Time
	CreatedAtEnd   *time.Time
}

// Validate rejects negative paging values and unknown enum values.
func (in ListTasksInput) Validate() error {
	verr := &ValidationError{}
	if in.Page < 0 {
		verr.Add("page", "must not be less than 1")
	}
	if in.Limit < 0 {
		verr.Add("limit", "must not be less than 1")
	}
	if in.Status != nil && !in.Status.Valid() {
		verr.Add("status", "must be one of: "+joinValues(Statuses))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		verr.Add("priority", "must be one of: "+joinValues(Priorities))
	}
	return verr.OrNil()
}

func validateName(verr *ValidationError, name string) {
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "must not be empty")
		return
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		verr.Add("name", "must be shorter than or equal to 255 characters")
	}
}
