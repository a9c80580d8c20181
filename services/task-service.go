package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/repositories"
)

// TaskService orchestrates task mutations: it resolves tags, replaces
// assignee sets, computes derived fields and couples every mutation with its
// audit records inside one transaction.
type TaskService struct {
	store    *repositories.Store
	notifier *Notifier
}

func NewTaskService(store *repositories.Store, notifier *Notifier) *TaskService {
	return &TaskService{store: store, notifier: notifier}
}

// CreateTask validates the request, persists the task with its assignees and
// tags, and writes the "created" history snapshot in the same transaction.
func (s *TaskService) CreateTask(ctx context.Context, req models.CreateTaskRequest, actor models.Actor) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	if req.Status == "" {
		req.Status = models.StatusTodo
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, req.Status)
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.IsValid() {
		return nil, fmt.Errorf("%w: invalid priority %q", models.ErrValidation, req.Priority)
	}
	if err := validateDueDate(req.DueDate); err != nil {
		return nil, err
	}
	// Literal 0 means "no parent".
	if req.ParentTaskID != nil && *req.ParentTaskID == 0 {
		req.ParentTaskID = nil
	}

	task := &models.Task{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		CreatorID:    actor.ID,
		ParentTaskID: req.ParentTaskID,
	}

	var assignees []models.User
	var tagNames []string
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if task.ParentTaskID != nil {
			exists, err := s.store.TaskExists(ctx, tx, *task.ParentTaskID)
			if err != nil {
				return err
			}
			if !exists {
				return models.ErrParentTaskNotFound
			}
		}

		assigneeIDs := uniqueIDs(req.AssigneeIDs)
		users, err := s.store.GetUsersByIDs(ctx, tx, assigneeIDs)
		if err != nil {
			return err
		}
		if len(users) != len(assigneeIDs) {
			return models.ErrInvalidAssignee
		}
		assignees = users

		if err := s.store.InsertTask(ctx, tx, task); err != nil {
			return err
		}
		if err := s.store.SetTaskAssignees(ctx, tx, task.ID, assigneeIDs); err != nil {
			return err
		}

		tagIDs, names, err := s.resolveTags(ctx, tx, req.TagNames)
		if err != nil {
			return err
		}
		tagNames = names
		if err := s.store.SetTaskTags(ctx, tx, task.ID, tagIDs); err != nil {
			return err
		}

		snapshot, err := initialStateSnapshot(task, assignees, tagNames)
		if err != nil {
			return err
		}
		return s.store.RecordHistory(ctx, tx, task.ID, actor.ID,
			models.ActionCreated, strPtr("initial_state"), nil, &snapshot)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.loadTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(created, assignees)
	return created, nil
}

// GetTask returns the task with subtasks and its dependency neighbourhood.
func (s *TaskService) GetTask(ctx context.Context, taskID int64) (*models.TaskDetail, error) {
	if taskID <= 0 {
		return nil, fmt.Errorf("%w: task id must be positive", models.ErrValidation)
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	subtasks, err := s.store.ListSubtasks(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	blocking, err := s.store.GetBlockedTaskIDs(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	blockedBy, err := s.store.GetBlockingTaskIDs(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	if subtasks == nil {
		subtasks = []models.Task{}
	}

	return &models.TaskDetail{
		Task:             *task,
		Subtasks:         subtasks,
		BlockingTaskIDs:  blocking,
		BlockedByTaskIDs: blockedBy,
	}, nil
}

// ListTasks returns a page of tasks in storage order.
func (s *TaskService) ListTasks(ctx context.Context, skip, limit int) ([]models.Task, error) {
	return s.store.ListTasks(ctx, normalizeSkip(skip), normalizeLimit(limit))
}

// FilterTasks evaluates the composite filter after validating the global
// operator.
func (s *TaskService) FilterTasks(ctx context.Context, filter models.TaskFilter, skip, limit int) ([]models.Task, error) {
	switch filter.LogicOperator {
	case "":
		filter.LogicOperator = models.OperatorAnd
	case models.OperatorAnd, models.OperatorOr:
	default:
		return nil, fmt.Errorf("%w: logic_operator must be AND or OR", models.ErrValidation)
	}
	return s.store.FilterTasks(ctx, filter, normalizeSkip(skip), normalizeLimit(limit))
}

// UpdateTask applies a partial update. Only fields present in the request
// are touched; each observable change writes one history record in the same
// transaction.
func (s *TaskService) UpdateTask(ctx context.Context, taskID int64, req models.UpdateTaskRequest, actor models.Actor) (*models.Task, error) {
	if taskID <= 0 {
		return nil, fmt.Errorf("%w: task id must be positive", models.ErrValidation)
	}
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	var newAssignees []models.User
	var task *models.Task
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		task, err = s.store.GetTaskByID(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if req.AssigneeIDs != nil {
			newAssignees, err = s.replaceAssignees(ctx, tx, task, *req.AssigneeIDs, actor, models.ActionUpdated)
			if err != nil {
				return err
			}
		}

		if req.TagNames != nil {
			if err := s.replaceTags(ctx, tx, task, *req.TagNames, actor, models.ActionUpdated); err != nil {
				return err
			}
		}

		changed, err := s.applyScalarUpdates(ctx, tx, task, req, actor, models.ActionUpdated)
		if err != nil {
			return err
		}
		if changed {
			return s.store.UpdateTask(ctx, tx, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if req.AssigneeIDs != nil {
		s.notifyAssignment(updated, newAssignees)
	}
	return updated, nil
}

// BulkUpdateTasks applies one partial update to every task in the batch,
// all-or-nothing. A single unknown id rejects the whole batch before any
// mutation happens.
func (s *TaskService) BulkUpdateTasks(ctx context.Context, req models.BulkUpdateRequest, actor models.Actor) (*models.BulkUpdateResult, error) {
	if len(req.TaskIDs) == 0 {
		return nil, fmt.Errorf("%w: task_ids must not be empty", models.ErrValidation)
	}
	for _, id := range req.TaskIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: task ids must be positive", models.ErrValidation)
		}
	}
	update := req.Update()
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	uniqueTaskIDs := uniqueIDs(req.TaskIDs)
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		tasks, err := s.store.GetTasksByIDs(ctx, tx, uniqueTaskIDs)
		if err != nil {
			return err
		}
		if len(tasks) != len(uniqueTaskIDs) {
			return models.ErrTaskNotFound
		}

		for i := range tasks {
			task := &tasks[i]

			if update.AssigneeIDs != nil {
				if _, err := s.replaceAssignees(ctx, tx, task, *update.AssigneeIDs, actor, models.ActionBulkUpdated); err != nil {
					return err
				}
			}
			if update.TagNames != nil {
				if err := s.replaceTags(ctx, tx, task, *update.TagNames, actor, models.ActionBulkUpdated); err != nil {
					return err
				}
			}
			changed, err := s.applyScalarUpdates(ctx, tx, task, update, actor, models.ActionBulkUpdated)
			if err != nil {
				return err
			}
			if changed {
				if err := s.store.UpdateTask(ctx, tx, task); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.BulkUpdateResult{
		Message:        fmt.Sprintf("Successfully updated %d tasks", len(uniqueTaskIDs)),
		UpdatedTaskIDs: req.TaskIDs,
	}, nil
}

// DeleteTask removes a task. Permitted only for the creator or an
// admin/manager role; dependency edges and history go with the task via the
// cascade rules.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int64, actor models.Actor) error {
	if taskID <= 0 {
		return fmt.Errorf("%w: task id must be positive", models.ErrValidation)
	}
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		task, err := s.store.GetTaskByID(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !actor.CanDelete(task.CreatorID) {
			return models.ErrForbidden
		}
		return s.store.DeleteTask(ctx, tx, taskID)
	})
}

// GetTaskHistory returns the audit trail for a task, oldest first.
func (s *TaskService) GetTaskHistory(ctx context.Context, taskID int64) ([]models.TaskHistory, error) {
	if taskID <= 0 {
		return nil, fmt.Errorf("%w: task id must be positive", models.ErrValidation)
	}
	exists, err := s.store.TaskExists(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrTaskNotFound
	}
	return s.store.ListHistoryByTask(ctx, taskID)
}

// replaceAssignees validates and swaps the assignee set, recording one
// history entry. Bulk updates omit the old/new id lists.
func (s *TaskService) replaceAssignees(ctx context.Context, tx *sql.Tx, task *models.Task, assigneeIDs []int64, actor models.Actor, action string) ([]models.User, error) {
	ids := uniqueIDs(assigneeIDs)
	users, err := s.store.GetUsersByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, models.ErrInvalidAssignee
	}

	old, err := s.store.GetAssigneesForTask(ctx, tx, task.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTaskAssignees(ctx, tx, task.ID, ids); err != nil {
		return nil, err
	}

	if action == models.ActionBulkUpdated {
		err = s.store.RecordHistory(ctx, tx, task.ID, actor.ID, action, strPtr("assignees"), nil, nil)
	} else {
		oldList := joinUserIDs(old)
		newList := joinUserIDs(users)
		err = s.store.RecordHistory(ctx, tx, task.ID, actor.ID, action, strPtr("assignees"), &oldList, &newList)
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

// replaceTags clears and re-resolves the tag set, recording one history
// entry. Bulk updates omit the old/new name lists.
func (s *TaskService) replaceTags(ctx context.Context, tx *sql.Tx, task *models.Task, tagNames []string, actor models.Actor, action string) error {
	oldTags, err := s.store.GetTagsForTask(ctx, tx, task.ID)
	if err != nil {
		return err
	}
	tagIDs, newNames, err := s.resolveTags(ctx, tx, tagNames)
	if err != nil {
		return err
	}
	if err := s.store.SetTaskTags(ctx, tx, task.ID, tagIDs); err != nil {
		return err
	}

	if action == models.ActionBulkUpdated {
		return s.store.RecordHistory(ctx, tx, task.ID, actor.ID, action, strPtr("tags"), nil, nil)
	}
	oldList := joinTagNames(oldTags)
	newList := strings.Join(newNames, ",")
	return s.store.RecordHistory(ctx, tx, task.ID, actor.ID, action, strPtr("tags"), &oldList, &newList)
}

// applyScalarUpdates applies the present scalar fields, skipping unchanged
// values so the audit trail carries no noise. A status transition into
// completed stamps the completion time; moving away from completed leaves
// the stamp in place.
func (s *TaskService) applyScalarUpdates(ctx context.Context, tx *sql.Tx, task *models.Task, req models.UpdateTaskRequest, actor models.Actor, action string) (bool, error) {
	changed := false

	record := func(field, oldValue, newValue string) error {
		return s.store.RecordHistory(ctx, tx, task.ID, actor.ID, action,
			strPtr(field), optionalStr(oldValue), optionalStr(newValue))
	}

	if req.Title != nil && *req.Title != task.Title {
		if err := record("title", task.Title, *req.Title); err != nil {
			return false, err
		}
		task.Title = *req.Title
		changed = true
	}
	if req.Description != nil && *req.Description != task.Description {
		if err := record("description", task.Description, *req.Description); err != nil {
			return false, err
		}
		task.Description = *req.Description
		changed = true
	}
	if req.Status != nil && *req.Status != task.Status {
		if err := record("status", string(task.Status), string(*req.Status)); err != nil {
			return false, err
		}
		task.Status = *req.Status
		if task.Status == models.StatusCompleted {
			now := time.Now().UTC()
			task.CompletedAt = &now
		}
		changed = true
	}
	if req.Priority != nil && *req.Priority != task.Priority {
		if err := record("priority", string(task.Priority), string(*req.Priority)); err != nil {
			return false, err
		}
		task.Priority = *req.Priority
		changed = true
	}
	if req.DueDate != nil && !equalStrPtr(req.DueDate, task.DueDate) {
		if err := record("due_date", derefStr(task.DueDate), *req.DueDate); err != nil {
			return false, err
		}
		task.DueDate = req.DueDate
		changed = true
	}

	return changed, nil
}

func (s *TaskService) resolveTags(ctx context.Context, tx *sql.Tx, names []string) ([]int64, []string, error) {
	var ids []int64
	var resolved []string
	seen := make(map[int64]bool)
	for _, name := range names {
		tag, err := s.store.GetOrCreateTag(ctx, tx, name)
		if err != nil {
			return nil, nil, err
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		ids = append(ids, tag.ID)
		resolved = append(resolved, tag.Name)
	}
	return ids, resolved, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID int64) (*models.Task, error) {
	task, err := s.store.GetTaskByID(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{*task}
	if err := s.store.LoadTaskAssociations(ctx, s.store.DB(), tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// notifyAssignment tells the notifications collaborator about the current
// assignee set. Best effort: failures are logged, never surfaced.
func (s *TaskService) notifyAssignment(task *models.Task, assignees []models.User) {
	if s.notifier == nil || len(assignees) == 0 {
		return
	}
	usernames := make([]string, len(assignees))
	for i, u := range assignees {
		usernames[i] = u.Username
	}
	if err := s.notifier.NotifyAssignment(usernames, task.ID, task.Title); err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_FAILED, Description: Failed to notify assignees for task %d: %v", task.ID, err)
	}
}

func validateUpdate(req models.UpdateTaskRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", models.ErrValidation)
	}
	if req.Status != nil && !req.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", models.ErrValidation, *req.Status)
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", models.ErrValidation, *req.Priority)
	}
	return validateDueDate(req.DueDate)
}

func validateDueDate(dueDate *string) error {
	if dueDate == nil {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, *dueDate); err != nil {
		return fmt.Errorf("%w: due_date must be formatted as %s", models.ErrValidation, models.DateLayout)
	}
	return nil
}

func initialStateSnapshot(task *models.Task, assignees []models.User, tagNames []string) (string, error) {
	usernames := make([]string, len(assignees))
	for i, u := range assignees {
		usernames[i] = u.Username
	}
	if tagNames == nil {
		tagNames = []string{}
	}
	snapshot := map[string]any{
		"title":     task.Title,
		"status":    string(task.Status),
		"priority":  string(task.Priority),
		"due_date":  task.DueDate,
		"assignees": usernames,
		"tags":      tagNames,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal initial state: %w", err)
	}
	return string(data), nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func joinUserIDs(users []models.User) string {
	parts := make([]string, len(users))
	for i, u := range users {
		parts[i] = strconv.FormatInt(u.ID, 10)
	}
	return strings.Join(parts, ",")
}

func joinTagNames(tags []models.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Name
	}
	return strings.Join(parts, ",")
}

func strPtr(s string) *string {
	return &s
}

// optionalStr maps the empty string to a SQL NULL value.
func optionalStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func normalizeSkip(skip int) int {
	if skip < 0 {
		return 0
	}
	return skip
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
