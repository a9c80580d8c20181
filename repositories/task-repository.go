package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"task-management/microservices/tasks-service/models"
)

const taskColumns = "id, title, description, status, priority, due_date, creator_id, parent_task_id, created_at, updated_at, completed_at"

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	var dueDate sql.NullString
	var parentID sql.NullInt64
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&dueDate, &t.CreatorID, &parentID, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if parentID.Valid {
		t.ParentTaskID = &parentID.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

// InsertTask persists a new task and fills in its generated ID and
// timestamps.
func (s *Store) InsertTask(ctx context.Context, q DBTX, t *models.Task) error {
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date, creator_id, parent_task_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		nullableString(t.DueDate), t.CreatorID, nullableInt64(t.ParentTaskID), now, now)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTaskByID returns the bare task row or models.ErrTaskNotFound.
// Associations are loaded separately via LoadTaskAssociations.
func (s *Store) GetTaskByID(ctx context.Context, q DBTX, id int64) (*models.Task, error) {
	row := q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// TaskExists reports whether a task with the given id exists.
func (s *Store) TaskExists(ctx context.Context, q DBTX, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("task exists: %w", err)
	}
	return true, nil
}

// GetTasksByIDs returns the bare task rows matching ids, in id order.
func (s *Store) GetTasksByIDs(ctx context.Context, q DBTX, ids []int64) ([]models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + taskColumns + " FROM tasks WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	rows, err := q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get tasks by ids: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasks returns a page of tasks in primary-key order with associations
// populated.
func (s *Store) ListTasks(ctx context.Context, skip, limit int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
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

// ListSubtasks returns the direct children of a task, associations included.
func (s *Store) ListSubtasks(ctx context.Context, q DBTX, parentID int64) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_task_id = ? ORDER BY id", parentID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	if err := s.LoadTaskAssociations(ctx, q, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask writes the task's scalar columns back and bumps updated_at.
func (s *Store) UpdateTask(ctx context.Context, q DBTX, t *models.Task) error {
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
		 due_date = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		nullableString(t.DueDate), nullableTime(t.CompletedAt), now, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	t.UpdatedAt = now
	return nil
}

// DeleteTask removes the task row. Dependency edges, history, assignee and
// tag links go with it via the schema's cascade rules; children are
// re-parented to NULL.
func (s *Store) DeleteTask(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}

// SetTaskAssignees replaces the task's assignee set.
func (s *Store) SetTaskAssignees(ctx context.Context, q DBTX, taskID int64, userIDs []int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}
	for _, userID := range userIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO task_assignees (task_id, user_id) VALUES (?, ?)", taskID, userID); err != nil {
			return fmt.Errorf("add assignee: %w", err)
		}
	}
	return nil
}

// GetAssigneesForTask returns the task's assignees in id order.
func (s *Store) GetAssigneesForTask(ctx context.Context, q DBTX, taskID int64) ([]models.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+prefixColumns("u", userColumns)+` FROM users u
		 JOIN task_assignees ta ON ta.user_id = u.id
		 WHERE ta.task_id = ? ORDER BY u.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("assignees for task: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetTaskTags replaces the task's tag set with the given tag ids.
func (s *Store) SetTaskTags(ctx context.Context, q DBTX, taskID int64, tagIDs []int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM task_tags WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID); err != nil {
			return fmt.Errorf("attach tag: %w", err)
		}
	}
	return nil
}

// CountSubtasks returns how many tasks point at taskID as their parent.
func (s *Store) CountSubtasks(ctx context.Context, q DBTX, taskID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE parent_task_id = ?", taskID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subtasks: %w", err)
	}
	return count, nil
}

// LoadTaskAssociations populates creator, assignees, tags and the derived
// subtask count for a batch of tasks with a fixed number of queries,
// avoiding per-task round trips.
func (s *Store) LoadTaskAssociations(ctx context.Context, q DBTX, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Task, len(tasks))
	ids := make([]int64, 0, len(tasks))
	creatorIDs := make(map[int64]bool)
	for i := range tasks {
		tasks[i].Assignees = []models.User{}
		tasks[i].Tags = []models.Tag{}
		byID[tasks[i].ID] = &tasks[i]
		ids = append(ids, tasks[i].ID)
		creatorIDs[tasks[i].CreatorID] = true
	}
	marks := placeholders(len(ids))
	args := int64Args(ids)

	// Creators.
	creators, err := s.GetUsersByIDs(ctx, q, maps.Keys(creatorIDs))
	if err != nil {
		return err
	}
	creatorByID := make(map[int64]models.User, len(creators))
	for _, u := range creators {
		creatorByID[u.ID] = u
	}
	for _, t := range byID {
		if u, ok := creatorByID[t.CreatorID]; ok {
			creator := u
			t.Creator = &creator
		}
	}

	// Assignees.
	rows, err := q.QueryContext(ctx,
		`SELECT ta.task_id, `+prefixColumns("u", userColumns)+` FROM users u
		 JOIN task_assignees ta ON ta.user_id = u.id
		 WHERE ta.task_id IN (`+marks+`) ORDER BY u.id`, args...)
	if err != nil {
		return fmt.Errorf("load assignees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var taskID int64
		var u models.User
		var isActive int
		if err := rows.Scan(&taskID, &u.ID, &u.Email, &u.Username, &u.FullName,
			&u.HashedPassword, &u.Role, &isActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return fmt.Errorf("scan assignee: %w", err)
		}
		u.IsActive = isActive != 0
		if t, ok := byID[taskID]; ok {
			t.Assignees = append(t.Assignees, u)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Tags.
	tagRows, err := q.QueryContext(ctx,
		`SELECT tt.task_id, g.id, g.name, g.created_at FROM tags g
		 JOIN task_tags tt ON tt.tag_id = g.id
		 WHERE tt.task_id IN (`+marks+`) ORDER BY g.id`, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var taskID int64
		var tag models.Tag
		if err := tagRows.Scan(&taskID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Tags = append(t.Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	// Subtask counts.
	countRows, err := q.QueryContext(ctx,
		`SELECT parent_task_id, COUNT(*) FROM tasks
		 WHERE parent_task_id IN (`+marks+`) GROUP BY parent_task_id`, args...)
	if err != nil {
		return fmt.Errorf("load subtask counts: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var parentID int64
		var count int
		if err := countRows.Scan(&parentID, &count); err != nil {
			return fmt.Errorf("scan subtask count: %w", err)
		}
		if t, ok := byID[parentID]; ok {
			t.SubtaskCount = count
		}
	}
	return countRows.Err()
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
