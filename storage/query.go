package storage

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/arsalyy/greeka-todo-api/domain"
)

const tasksTable = "tasks"

var taskColumns = []string{"id", "name", "due_date", "status", "priority", "created_at", "is_active"}

var fieldColumns = map[domain.Field]string{
	domain.FieldIsActive:  "is_active",
	domain.FieldName:      "name",
	domain.FieldStatus:    "status",
	domain.FieldPriority:  "priority",
	domain.FieldDueDate:   "due_date",
	domain.FieldCreatedAt: "created_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// predicateSQL translates a predicate into a squirrel condition on the tasks
// table.
func predicateSQL(p domain.Predicate) (squirrel.Sqlizer, error) {
	col, ok := fieldColumns[p.Field]
	if !ok {
		return nil, fmt.Errorf("unknown filter field %q", p.Field)
	}
	val := columnValue(p.Value)
	switch p.Op {
	case domain.OpEq:
		return squirrel.Eq{col: val}, nil
	case domain.OpContainsFold:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("substring filter on %s needs a string, got %T", col, p.Value)
		}
		return squirrel.ILike{col: "%" + likeEscaper.Replace(s) + "%"}, nil
	case domain.OpGte:
		return squirrel.GtOrEq{col: val}, nil
	case domain.OpLte:
		return squirrel.LtOrEq{col: val}, nil
	}
	return nil, fmt.Errorf("unsupported operator %d on %s", p.Op, col)
}

func columnValue(v any) any {
	switch x := v.(type) {
	case domain.Status:
		return string(x)
	case domain.Priority:
		return string(x)
	}
	return v
}

func whereClause(preds []domain.Predicate) (squirrel.And, error) {
	and := make(squirrel.And, 0, len(preds))
	for _, p := range preds {
		cond, err := predicateSQL(p)
		if err != nil {
			return nil, err
		}
		and = append(and, cond)
	}
	return and, nil
}

func orderBy(o domain.SortOrder) (string, error) {
	switch o {
	case domain.OrderCreatedAtDesc:
		return "created_at DESC", nil
	}
	return "", fmt.Errorf("unsupported sort order %d", o)
}

// listStatements builds the page select and the matching count for q.
func listStatements(b squirrel.StatementBuilderType, q domain.TaskQuery) (squirrel.SelectBuilder, squirrel.SelectBuilder, error) {
	where, err := whereClause(q.Predicates)
	if err != nil {
		return squirrel.SelectBuilder{}, squirrel.SelectBuilder{}, err
	}
	order, err := orderBy(q.Order)
	if err != nil {
		return squirrel.SelectBuilder{}, squirrel.SelectBuilder{}, err
	}
	if q.Offset < 0 || q.Limit < 0 {
		return squirrel.SelectBuilder{}, squirrel.SelectBuilder{}, fmt.Errorf("negative paging offset=%d limit=%d", q.Offset, q.Limit)
	}

	page := b.Select(taskColumns...).From(tasksTable)
	count := b.Select("COUNT(*)").From(tasksTable)
	if len(where) > 0 {
		page = page.Where(where)
		count = count.Where(where)
	}
	page = page.OrderBy(order).Offset(uint64(q.Offset)).Limit(uint64(q.Limit))
	return page, count, nil
}
