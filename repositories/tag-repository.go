package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-management/microservices/tasks-service/models"
)

// GetOrCreateTag resolves a tag name to its row, creating the tag on first
// use. Names are normalized to lowercase before lookup. A concurrent insert
// losing the race against the UNIQUE constraint falls back to a re-lookup.
func (s *Store) GetOrCreateTag(ctx context.Context, q DBTX, name string) (*models.Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty tag name", models.ErrValidation)
	}

	tag, err := s.getTagByName(ctx, q, normalized)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup tag: %w", err)
	}

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, "INSERT INTO tags (name, created_at) VALUES (?, ?)", normalized, now)
	if err != nil {
		if isUniqueViolation(err) {
			return s.getTagByName(ctx, q, normalized)
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &models.Tag{ID: id, Name: normalized, CreatedAt: now}, nil
}

func (s *Store) getTagByName(ctx context.Context, q DBTX, name string) (*models.Tag, error) {
	var tag models.Tag
	err := q.QueryRowContext(ctx, "SELECT id, name, created_at FROM tags WHERE name = ?", name).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTagsForTask returns the tags attached to one task, in attach order.
func (s *Store) GetTagsForTask(ctx context.Context, q DBTX, taskID int64) ([]models.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_at FROM tags g
		 JOIN task_tags tt ON tt.tag_id = g.id
		 WHERE tt.task_id = ? ORDER BY g.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("tags for task: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
