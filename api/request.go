package api

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/arsalyy/greeka-todo-api/domain"
)

var errInvalidBody = errors.New(msgInvalidBody)

var listParams = map[string]struct{}{
	"page":             {},
	"limit":            {},
	"status":           {},
	"priority":         {},
	"search":           {},
	"due_date_start":   {},
	"due_date_end":     {},
	"created_at_start": {},
	"created_at_end":   {},
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds and a
// bare calendar date, which is read as UTC midnight.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func parseTaskID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseListQuery maps GET /tasks query parameters onto list filters. Empty
// values count as absent and unknown parameters are rejected.
func parseListQuery(values url.Values) (domain.ListTasksInput, error) {
	var in domain.ListTasksInput
	verr := &domain.ValidationError{}

	for key := range values {
		if _, ok := listParams[key]; !ok {
			verr.Add(key, "is not a supported query parameter")
		}
	}

	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}
	positive := func(key string) int {
		raw := get(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add(key, "must be an integer")
			return 0
		}
		if n < 1 {
			verr.Add(key, "must not be less than 1")
			return 0
		}
		return n
	}
	timestamp := func(key string) *time.Time {
		raw := get(key)
		if raw == "" {
			return nil
		}
		t, err := parseTimestamp(raw)
		if err != nil {
			verr.Add(key, "must be a valid ISO 8601 date string")
			return nil
		}
		return &t
	}

	in.Page = positive("page")
	in.Limit = positive("limit")
	if raw := get("status"); raw != "" {
		s, err := domain.ParseStatus(raw)
		if err != nil {
			verr.Add("status", err.Error())
		} else {
			in.Status = &s
		}
	}
	if raw := get("priority"); raw != "" {
		p, err := domain.ParsePriority(raw)
		if err != nil {
			verr.Add("priority", err.Error())
		} else {
			in.Priority = &p
		}
	}
	in.Search = values.Get("search")
	in.DueDateStart = timestamp("due_date_start")
	in.DueDateEnd = timestamp("due_date_end")
	in.CreatedAtStart = timestamp("created_at_start")
	in.CreatedAtEnd = timestamp("created_at_end")

	if err := verr.OrNil(); err != nil {
		return domain.ListTasksInput{}, err
	}
	return in, nil
}

// readBody reads at most maxBodySize bytes. An empty body is rejected unless
// emptyAs is set, in which case emptyAs is returned in its place.
func readBody(r io.Reader, emptyAs []byte) ([]byte, error) {
	var data []byte
	if r != nil {
		var err error
		data, err = io.ReadAll(io.LimitReader(r, maxBodySize+1))
		if err != nil {
			return nil, errInvalidBody
		}
	}
	if len(data) > maxBodySize {
		return nil, errInvalidBody
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if emptyAs == nil {
			return nil, errInvalidBody
		}
		return emptyAs, nil
	}
	return data, nil
}

func decodeStrict(data []byte, v any) error {
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// decodeCreateTask reads a POST /tasks body.
func decodeCreateTask(r io.Reader) (domain.CreateTaskInput, error) {
	data, err := readBody(r, nil)
	if err != nil {
		return domain.CreateTaskInput{}, err
	}
	var req createTaskRequest
	if err := decodeStrict(data, &req); err != nil {
		return domain.CreateTaskInput{}, err
	}

	var in domain.CreateTaskInput
	verr := &domain.ValidationError{}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.DueDate != nil {
		t, err := parseTimestamp(*req.DueDate)
		if err != nil {
			verr.Add("due_date", "must be a valid ISO 8601 date string")
		} else {
			in.DueDate = &t
		}
	}
	if req.Status != nil {
		s := domain.Status(*req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}
	if err := verr.OrNil(); err != nil {
		return domain.CreateTaskInput{}, err
	}
	return in, nil
}

// decodeUpdateTask reads a PATCH /tasks/:id body. A missing body is an empty
// update. A null due_date clears the due date; null is rejected for the other
// fields.
func decodeUpdateTask(r io.Reader) (domain.UpdateTaskInput, error) {
	data, err := readBody(r, []byte("{}"))
	if err != nil {
		return domain.UpdateTaskInput{}, err
	}
	var req updateTaskRequest
	if err := decodeStrict(data, &req); err != nil {
		return domain.UpdateTaskInput{}, err
	}
	var present map[string]any
	if err := sonic.Unmarshal(data, &present); err != nil {
		return domain.UpdateTaskInput{}, errInvalidBody
	}
	isNull := func(key string) bool {
		v, ok := present[key]
		return ok && v == nil
	}

	var in domain.UpdateTaskInput
	verr := &domain.ValidationError{}
	for _, key := range []string{"name", "status", "priority"} {
		if isNull(key) {
			verr.Add(key, "must not be null")
		}
	}
	in.Name = req.Name
	switch {
	case isNull("due_date"):
		in.ClearDueDate = true
	case req.DueDate != nil:
		t, err := parseTimestamp(*req.DueDate)
		if err != nil {
			verr.Add("due_date", "must be a valid ISO 8601 date string")
		} else {
			in.DueDate = &t
		}
	}
	if req.Status != nil {
		s := domain.Status(*req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}
	if err := verr.OrNil(); err != nil {
		return domain.UpdateTaskInput{}, err
	}
	return in, nil
}
