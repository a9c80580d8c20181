package models

import "time"

// History actions written by the mutation services.
const (
	ActionCreated           = "created"
	ActionUpdated           = "updated"
	ActionBulkUpdated       = "bulk_updated"
	ActionDependencyAdded   = "dependency_added"
	ActionDependencyRemoved = "dependency_removed"
)

// TaskHistory is one immutable audit record. Rows are only ever removed by
// the cascade when the parent task is deleted.
type TaskHistory struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	FieldName *string   `json:"field_name,omitempty"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	User *User `json:"user,omitempty"`
}
