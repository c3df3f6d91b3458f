package domain

import (
	"strings"
	"time"
)

// Field names a filterable task column.
type Field string

const (
	FieldIsActive  Field = "is_active"
	FieldName      Field = "name"
	FieldStatus    Field = "status"
	FieldPriority  Field = "priority"
	FieldDueDate   Field = "due_date"
	FieldCreatedAt Field = "created_at"
)

// Op is the comparison a Predicate applies.
type Op int

const (
	OpEq Op = iota
	// OpContainsFold is a case-insensitive substring match on text fields.
	OpContainsFold
	OpGte
	OpLte
)

// Predicate is one filter condition. A TaskQuery combines its predicates
// with logical AND.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Matches evaluates the predicate against t. Range predicates never match a
// task without a due date.
func (p Predicate) Matches(t Task) bool {
	switch p.Field {
	case FieldIsActive:
		v, ok := p.Value.(bool)
		return ok && p.Op == OpEq && t.IsActive == v
	case FieldName:
		v, ok := p.Value.(string)
		if !ok {
			return false
		}
		switch p.Op {
		case OpEq:
			return t.Name == v
		case OpContainsFold:
			return strings.Contains(strings.ToLower(t.Name), strings.ToLower(v))
		}
		return false
	case FieldStatus:
		v, ok := p.Value.(Status)
		return ok && p.Op == OpEq && t.Status == v
	case FieldPriority:
		v, ok := p.Value.(Priority)
		return ok && p.Op == OpEq && t.Priority == v
	case FieldDueDate:
		if t.DueDate == nil {
			return false
		}
		return compareTime(*t.DueDate, p.Op, p.Value)
	case FieldCreatedAt:
		return compareTime(t.CreatedAt, p.Op, p.Value)
	}
	return false
}

func compareTime(have time.Time, op Op, value any) bool {
	want, ok := value.(time.Time)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return have.Equal(want)
	case OpGte:
		return !have.Before(want)
	case OpLte:
		return !have.After(want)
	}
	return false
}

// MatchesAll reports whether t satisfies every predicate.
func MatchesAll(preds []Predicate, t Task) bool {
	for _, p := range preds {
		if !p.Matches(t) {
			return false
		}
	}
	return true
}

// SortOrder is the ordering applied to list results. Only newest-first by
// creation time exists.
type SortOrder int

const (
	OrderCreatedAtDesc SortOrder = iota
)

// TaskQuery is a fully built store read.
type TaskQuery struct {
	Predicates []Predicate
	Order      SortOrder
	Offset     int
	Limit      int
}

// Page is one slice of a filtered listing.
type Page struct {
	Items []Task `json:"items"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
