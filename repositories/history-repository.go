package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"task-management/microservices/tasks-service/models"
)

// RecordHistory appends one immutable audit record. It must run on the same
// DBTX as the mutation it documents so both commit or roll back together.
func (s *Store) RecordHistory(ctx context.Context, q DBTX, taskID, userID int64, action string, fieldName, oldValue, newValue *string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO task_history (task_id, user_id, action, field_name, old_value, new_value, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, userID, action, nullableString(fieldName), nullableString(oldValue),
		nullableString(newValue), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// ListHistoryByTask returns the task's audit trail, oldest first, with the
// acting user attached to each record.
func (s *Store) ListHistoryByTask(ctx context.Context, taskID int64) ([]models.TaskHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.task_id, h.user_id, h.action, h.field_name, h.old_value, h.new_value, h.timestamp,
		        `+prefixColumns("u", userColumns)+`
		 FROM task_history h
		 JOIN users u ON u.id = h.user_id
		 WHERE h.task_id = ? ORDER BY h.timestamp, h.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []models.TaskHistory
	for rows.Next() {
		var h models.TaskHistory
		var fieldName, oldValue, newValue sql.NullString
		var u models.User
		var isActive int
		if err := rows.Scan(&h.ID, &h.TaskID, &h.UserID, &h.Action, &fieldName, &oldValue, &newValue, &h.Timestamp,
			&u.ID, &u.Email, &u.Username, &u.FullName, &u.HashedPassword, &u.Role, &isActive,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if fieldName.Valid {
			h.FieldName = &fieldName.String
		}
		if oldValue.Valid {
			h.OldValue = &oldValue.String
		}
		if newValue.Valid {
			h.NewValue = &newValue.String
		}
		u.IsActive = isActive != 0
		h.User = &u
		records = append(records, h)
	}
	return records, rows.Err()
}

// CountHistoryByTask returns the number of audit records for a task.
func (s *Store) CountHistoryByTask(ctx context.Context, taskID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM task_history WHERE task_id = ?", taskID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}
