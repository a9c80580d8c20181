package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"task-management/microservices/tasks-service/models"
)

// FilterTasks evaluates the composite filter against the task set. Every
// supplied dimension contributes one boolean condition; the conditions are
// folded with the filter's single global operator. Results come back in
// primary-key order with associations populated.
//
// The operator must already be validated by the caller; an empty operator
// means AND.
func (s *Store) FilterTasks(ctx context.Context, filter models.TaskFilter, skip, limit int) ([]models.Task, error) {
	var conditions []string
	var args []any

	if len(filter.Status) > 0 {
		conditions = append(conditions, "t.status IN ("+placeholders(len(filter.Status))+")")
		for _, st := range filter.Status {
			args = append(args, string(st))
		}
	}

	if len(filter.Priority) > 0 {
		conditions = append(conditions, "t.priority IN ("+placeholders(len(filter.Priority))+")")
		for _, p := range filter.Priority {
			args = append(args, string(p))
		}
	}

	if len(filter.CreatorIDs) > 0 {
		conditions = append(conditions, "t.creator_id IN ("+placeholders(len(filter.CreatorIDs))+")")
		args = append(args, int64Args(filter.CreatorIDs)...)
	}

	if len(filter.AssigneeIDs) > 0 {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM task_assignees ta WHERE ta.task_id = t.id AND ta.user_id IN ("+
				placeholders(len(filter.AssigneeIDs))+"))")
		args = append(args, int64Args(filter.AssigneeIDs)...)
	}

	if len(filter.TagNames) > 0 {
		lowered := make([]string, len(filter.TagNames))
		for i, name := range filter.TagNames {
			lowered[i] = strings.ToLower(name)
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM task_tags tt JOIN tags g ON g.id = tt.tag_id WHERE tt.task_id = t.id AND g.name IN ("+
				placeholders(len(lowered))+"))")
		args = append(args, stringArgs(lowered)...)
	}

	if filter.DueDateFrom != nil {
		conditions = append(conditions, "t.due_date >= ?")
		args = append(args, *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		conditions = append(conditions, "t.due_date <= ?")
		args = append(args, *filter.DueDateTo)
	}

	// Created-date bounds are dates widened to full-day datetime ranges.
	if filter.CreatedFrom != nil {
		from, err := time.ParseInLocation(models.DateLayout, *filter.CreatedFrom, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid created_from date", models.ErrValidation)
		}
		conditions = append(conditions, "t.created_at >= ?")
		args = append(args, from)
	}
	if filter.CreatedTo != nil {
		to, err := time.ParseInLocation(models.DateLayout, *filter.CreatedTo, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid created_to date", models.ErrValidation)
		}
		conditions = append(conditions, "t.created_at < ?")
		args = append(args, to.AddDate(0, 0, 1))
	}

	// Free-text search is an inner OR over title and description no matter
	// what the global operator is.
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + strings.ToLower(*filter.Search) + "%"
		conditions = append(conditions,
			"(LOWER(t.title) LIKE ? OR LOWER(t.description) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if filter.IsOverdue {
		conditions = append(conditions,
			"(t.due_date IS NOT NULL AND t.due_date < ? AND t.status != ?)")
		args = append(args, time.Now().UTC().Format(models.DateLayout), string(models.StatusCompleted))
	}

	if filter.HasSubtasks != nil {
		if *filter.HasSubtasks {
			conditions = append(conditions,
				"EXISTS (SELECT 1 FROM tasks c WHERE c.parent_task_id = t.id)")
		} else {
			conditions = append(conditions,
				"NOT EXISTS (SELECT 1 FROM tasks c WHERE c.parent_task_id = t.id)")
		}
	}

	if filter.ParentTaskID != nil {
		if *filter.ParentTaskID == 0 {
			conditions = append(conditions, "t.parent_task_id IS NULL")
		} else {
			conditions = append(conditions, "t.parent_task_id = ?")
			args = append(args, *filter.ParentTaskID)
		}
	}

	query := "SELECT " + prefixColumns("t", taskColumns) + " FROM tasks t"
	if len(conditions) > 0 {
		glue := " AND "
		if filter.LogicOperator == models.OperatorOr {
			glue = " OR "
		}
		query += " WHERE " + strings.Join(conditions, glue)
	}
	query += " ORDER BY t.id LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.LoadTaskAssociations(ctx, s.db, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
