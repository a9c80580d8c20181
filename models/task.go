package models

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusInReview   TaskStatus = "in_review"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DateLayout is the wire format for due dates and date filters.
const DateLayout = "2006-01-02"

type Task struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      *string      `json:"due_date,omitempty"`
	CreatorID    int64        `json:"creator_id"`
	ParentTaskID *int64       `json:"parent_task_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`

	Creator   *User  `json:"creator,omitempty"`
	Assignees []User `json:"assignees"`
	Tags      []Tag  `json:"tags"`

	// Derived at read time, never persisted.
	SubtaskCount int `json:"subtask_count"`
}

// TaskDetail is a task with its subtasks and dependency neighbourhood,
// returned by the single-task endpoint.
type TaskDetail struct {
	Task
	Subtasks []Task `json:"subtasks"`
	// Tasks that this task blocks.
	BlockingTaskIDs []int64 `json:"blocking_task_ids"`
	// Tasks that block this task.
	BlockedByTaskIDs []int64 `json:"blocked_by_task_ids"`
}

// CreateTaskRequest is the payload for task creation.
type CreateTaskRequest struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      *string      `json:"due_date"`
	AssigneeIDs  []int64      `json:"assignee_ids"`
	TagNames     []string     `json:"tag_names"`
	ParentTaskID *int64       `json:"parent_task_id"`
}

// UpdateTaskRequest is a partial update: nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status"`
	Priority    *TaskPriority `json:"priority"`
	DueDate     *string       `json:"due_date"`
	AssigneeIDs *[]int64      `json:"assignee_ids"`
	TagNames    *[]string     `json:"tag_names"`
}

// BulkUpdateRequest applies one partial update to a batch of tasks.
type BulkUpdateRequest struct {
	TaskIDs     []int64       `json:"task_ids"`
	Status      *TaskStatus   `json:"status"`
	Priority    *TaskPriority `json:"priority"`
	AssigneeIDs *[]int64      `json:"assignee_ids"`
	TagNames    *[]string     `json:"tag_names"`
}

// Update returns the batch payload as a per-task partial update.
func (b BulkUpdateRequest) Update() UpdateTaskRequest {
	return UpdateTaskRequest{
		Status:      b.Status,
		Priority:    b.Priority,
		AssigneeIDs: b.AssigneeIDs,
		TagNames:    b.TagNames,
	}
}

// BulkUpdateResult reports how many tasks a bulk update touched.
type BulkUpdateResult struct {
	Message        string  `json:"message"`
	UpdatedTaskIDs []int64 `json:"updated_task_ids"`
}
