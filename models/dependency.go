package models

import "time"

// TaskDependency is a directed edge: the blocking task must finish before
// the blocked task can proceed. At most one edge exists per ordered pair.
type TaskDependency struct {
	ID             int64     `json:"id"`
	BlockingTaskID int64     `json:"blocking_task_id"`
	BlockedTaskID  int64     `json:"blocked_task_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateDependencyRequest names the blocking task; the blocked task comes
// from the URL path.
type CreateDependencyRequest struct {
	BlockingTaskID int64 `json:"blocking_task_id"`
}
