package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"task-management/microservices/tasks-service/models"
)

// InsertDependency persists a blocking -> blocked edge. The UNIQUE pair
// constraint turns a racing duplicate into models.ErrDuplicateDependency.
func (s *Store) InsertDependency(ctx context.Context, q DBTX, blockingID, blockedID int64) (*models.TaskDependency, error) {
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx,
		`INSERT INTO task_dependencies (blocking_task_id, blocked_task_id, created_at) VALUES (?, ?, ?)`,
		blockingID, blockedID, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrDuplicateDependency
		}
		return nil, fmt.Errorf("insert dependency: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &models.TaskDependency{
		ID:             id,
		BlockingTaskID: blockingID,
		BlockedTaskID:  blockedID,
		CreatedAt:      now,
	}, nil
}

// GetDependency returns the edge or models.ErrDependencyNotFound.
func (s *Store) GetDependency(ctx context.Context, q DBTX, id int64) (*models.TaskDependency, error) {
	var dep models.TaskDependency
	err := q.QueryRowContext(ctx,
		`SELECT id, blocking_task_id, blocked_task_id, created_at FROM task_dependencies WHERE id = ?`, id).
		Scan(&dep.ID, &dep.BlockingTaskID, &dep.BlockedTaskID, &dep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDependencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency: %w", err)
	}
	return &dep, nil
}

// DependencyExists reports whether an edge with the exact ordered pair
// already exists.
func (s *Store) DependencyExists(ctx context.Context, q DBTX, blockingID, blockedID int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM task_dependencies WHERE blocking_task_id = ? AND blocked_task_id = ?`,
		blockingID, blockedID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dependency exists: %w", err)
	}
	return true, nil
}

// DeleteDependency removes the edge by id.
func (s *Store) DeleteDependency(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM task_dependencies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrDependencyNotFound
	}
	return nil
}

// WouldCreateCycle reports whether adding blocking -> blocked would close a
// cycle, i.e. whether blocked already transitively blocks blocking. Walks
// the edge list with a recursive CTE.
func (s *Store) WouldCreateCycle(ctx context.Context, q DBTX, blockingID, blockedID int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE downstream(task_id) AS (
			SELECT blocked_task_id FROM task_dependencies WHERE blocking_task_id = ?
			UNION
			SELECT d.blocked_task_id FROM task_dependencies d
			JOIN downstream ds ON d.blocking_task_id = ds.task_id
		)
		SELECT 1 FROM downstream WHERE task_id = ? LIMIT 1`,
		blockedID, blockingID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cycle check: %w", err)
	}
	return true, nil
}

// GetBlockedTaskIDs returns the ids of tasks that taskID blocks.
func (s *Store) GetBlockedTaskIDs(ctx context.Context, q DBTX, taskID int64) ([]int64, error) {
	return s.dependencyIDs(ctx, q,
		"SELECT blocked_task_id FROM task_dependencies WHERE blocking_task_id = ? ORDER BY blocked_task_id", taskID)
}

// GetBlockingTaskIDs returns the ids of tasks that block taskID.
func (s *Store) GetBlockingTaskIDs(ctx context.Context, q DBTX, taskID int64) ([]int64, error) {
	return s.dependencyIDs(ctx, q,
		"SELECT blocking_task_id FROM task_dependencies WHERE blocked_task_id = ? ORDER BY blocking_task_id", taskID)
}

func (s *Store) dependencyIDs(ctx context.Context, q DBTX, query string, taskID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("dependency ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan dependency id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
