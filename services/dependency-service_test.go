package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"task-management/microservices/tasks-service/models"
)

func newDependencyFixture(t *testing.T) (*DependencyService, *TaskService, models.Actor) {
	t.Helper()
	taskSvc, store := newTaskService(t)
	user := registerUser(t, store, "walt", models.RoleMember)
	return NewDependencyService(store), taskSvc, actorFor(user)
}

func createTask(t *testing.T, svc *TaskService, actor models.Actor, title string) *models.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), models.CreateTaskRequest{Title: title}, actor)
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func TestAddDependency_RecordsHistoryOnBlockedTask(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	ctx := context.Background()
	blocking := createTask(t, taskSvc, actor, "blocking")
	blocked := createTask(t, taskSvc, actor, "blocked")

	dep, err := depSvc.AddDependency(ctx, blocking.ID, blocked.ID, actor)
	if err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if dep.BlockingTaskID != blocking.ID || dep.BlockedTaskID != blocked.ID {
		t.Errorf("unexpected edge %+v", dep)
	}

	history, err := taskSvc.GetTaskHistory(ctx, blocked.ID)
	if err != nil {
		t.Fatalf("GetTaskHistory: %v", err)
	}
	last := history[len(history)-1]
	if last.Action != models.ActionDependencyAdded {
		t.Errorf("expected action %q, got %q", models.ActionDependencyAdded, last.Action)
	}
	if last.NewValue == nil || *last.NewValue != strconv.FormatInt(blocking.ID, 10) {
		t.Error("expected blocking task id in new_value")
	}

	// The blocking task's trail stays clean.
	blockingHistory, err := taskSvc.GetTaskHistory(ctx, blocking.ID)
	if err != nil {
		t.Fatalf("GetTaskHistory: %v", err)
	}
	if len(blockingHistory) != 1 {
		t.Errorf("expected only the creation record on the blocking task, got %d", len(blockingHistory))
	}
}

func TestAddDependency_RejectsUnknownTask(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	task := createTask(t, taskSvc, actor, "t")

	_, err := depSvc.AddDependency(context.Background(), 9999, task.ID, actor)
	if !errors.Is(err, models.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAddDependency_RejectsSelfDependency(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	task := createTask(t, taskSvc, actor, "t")

	_, err := depSvc.AddDependency(context.Background(), task.ID, task.ID, actor)
	if !errors.Is(err, models.ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestAddDependency_RejectsDuplicateEdge(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	ctx := context.Background()
	a := createTask(t, taskSvc, actor, "A")
	b := createTask(t, taskSvc, actor, "B")

	if _, err := depSvc.AddDependency(ctx, a.ID, b.ID, actor); err != nil {
		t.Fatalf("first AddDependency: %v", err)
	}
	_, err := depSvc.AddDependency(ctx, a.ID, b.ID, actor)
	if !errors.Is(err, models.ErrDuplicateDependency) {
		t.Errorf("expected ErrDuplicateDependency, got %v", err)
	}
}

func TestAddDependency_RejectsCycle(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	ctx := context.Background()
	a := createTask(t, taskSvc, actor, "A")
	b := createTask(t, taskSvc, actor, "B")
	c := createTask(t, taskSvc, actor, "C")

	if _, err := depSvc.AddDependency(ctx, a.ID, b.ID, actor); err != nil {
		t.Fatalf("A -> B: %v", err)
	}
	if _, err := depSvc.AddDependency(ctx, b.ID, c.ID, actor); err != nil {
		t.Fatalf("B -> C: %v", err)
	}

	_, err := depSvc.AddDependency(ctx, c.ID, a.ID, actor)
	if !errors.Is(err, models.ErrDependencyCycle) {
		t.Errorf("expected ErrDependencyCycle for C -> A, got %v", err)
	}

	// The reverse direction along the chain is fine.
	if _, err := depSvc.AddDependency(ctx, a.ID, c.ID, actor); err != nil {
		t.Errorf("A -> C should be allowed, got %v", err)
	}
}

func TestRemoveDependency_RecordsHistory(t *testing.T) {
	depSvc, taskSvc, actor := newDependencyFixture(t)
	ctx := context.Background()
	blocking := createTask(t, taskSvc, actor, "blocking")
	blocked := createTask(t, taskSvc, actor, "blocked")

	dep, err := depSvc.AddDependency(ctx, blocking.ID, blocked.ID, actor)
	if err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := depSvc.RemoveDependency(ctx, dep.ID, actor); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}

	detail, err := taskSvc.GetTask(ctx, blocked.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(detail.BlockedByTaskIDs) != 0 {
		t.Errorf("expected edge removed, got %v", detail.BlockedByTaskIDs)
	}

	history, err := taskSvc.GetTaskHistory(ctx, blocked.ID)
	if err != nil {
		t.Fatalf("GetTaskHistory: %v", err)
	}
	last := history[len(history)-1]
	if last.Action != models.ActionDependencyRemoved {
		t.Errorf("expected action %q, got %q", models.ActionDependencyRemoved, last.Action)
	}
	if last.OldValue == nil || *last.OldValue != strconv.FormatInt(blocking.ID, 10) {
		t.Error("expected blocking task id in old_value")
	}
}

func TestRemoveDependency_UnknownEdge(t *testing.T) {
	depSvc, _, actor := newDependencyFixture(t)

	err := depSvc.RemoveDependency(context.Background(), 9999, actor)
	if !errors.Is(err, models.ErrDependencyNotFound) {
		t.Errorf("expected ErrDependencyNotFound, got %v", err)
	}
}
