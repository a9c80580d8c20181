package models

// Logic operators for combining filter conditions.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// TaskFilter is the composite predicate evaluated by the filter endpoint.
// Every dimension is optional; all supplied dimensions are folded with the
// single global LogicOperator (default AND). There is no nesting, except
// that Search always matches title OR description regardless of the global
// operator.
type TaskFilter struct {
	Status      []TaskStatus   `json:"status"`
	Priority    []TaskPriority `json:"priority"`
	AssigneeIDs []int64        `json:"assignee_ids"`
	CreatorIDs  []int64        `json:"creator_ids"`
	TagNames    []string       `json:"tag_names"`
	DueDateFrom *string        `json:"due_date_from"`
	DueDateTo   *string        `json:"due_date_to"`
	CreatedFrom *string        `json:"created_from"`
	CreatedTo   *string        `json:"created_to"`
	Search      *string        `json:"search"`
	IsOverdue   bool           `json:"is_overdue"`
	HasSubtasks *bool          `json:"has_subtasks"`
	// 0 means "no parent" (matches tasks whose parent is unset).
	ParentTaskID *int64 `json:"parent_task_id"`

	LogicOperator string `json:"logic_operator"`
}
