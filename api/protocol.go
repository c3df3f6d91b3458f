package api

const maxBodySize = 64 * 1024 // 64 KiB

const (
	msgTaskCreated    = "Task created successfully"
	msgTasksRetrieved = "Tasks retrieved successfully"
	msgTaskRetrieved  = "Task retrieved successfully"
	msgTaskUpdated    = "Task updated successfully"
	msgTaskDeleted    = "Task deleted successfully"

	msgInvalidBody      = "invalid request body"
	msgInternal         = "failed to process task request"
	msgStoreUnavailable = "task store unavailable"
)

// envelope wraps every response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// POST /tasks request body
type createTaskRequest struct {
	Name     *string `json:"name"`
	DueDate  *string `json:"due_date"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

// PATCH /tasks/:id request body. Field presence is tracked separately so that
// an explicit null can be told apart from an omitted key.
type updateTaskRequest struct {
	Name     *string `json:"name"`
	DueDate  *string `json:"due_date"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

type healthResponse struct {
	Status string `json:"status"`
}
