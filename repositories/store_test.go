package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"task-management/microservices/tasks-service/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, username string, role models.UserRole) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), &models.User{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "hashed",
		Role:           role,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedTask(t *testing.T, s *Store, creatorID int64, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:     title,
		Status:    models.StatusTodo,
		Priority:  models.PriorityMedium,
		CreatorID: creatorID,
	}
	if err := s.InsertTask(context.Background(), s.DB(), task); err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file not created")
	}
}

func TestGetOrCreateTag_NormalizesAndDeduplicates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateTag(ctx, s.DB(), "Urgent")
	if err != nil {
		t.Fatalf("GetOrCreateTag: %v", err)
	}
	if first.Name != "urgent" {
		t.Errorf("expected normalized name 'urgent', got %q", first.Name)
	}

	second, err := s.GetOrCreateTag(ctx, s.DB(), "URGENT")
	if err != nil {
		t.Fatalf("GetOrCreateTag second call: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same tag id %d, got %d", first.ID, second.ID)
	}
}

func TestGetTaskByID_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetTaskByID(context.Background(), s.DB(), 42)
	if err != models.ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask_CascadesDependenciesAndHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice", models.RoleMember)
	a := seedTask(t, s, user.ID, "A")
	b := seedTask(t, s, user.ID, "B")
	c := seedTask(t, s, user.ID, "C")

	if _, err := s.InsertDependency(ctx, s.DB(), a.ID, b.ID); err != nil {
		t.Fatalf("insert dependency: %v", err)
	}
	if _, err := s.InsertDependency(ctx, s.DB(), b.ID, c.ID); err != nil {
		t.Fatalf("insert dependency: %v", err)
	}
	if err := s.RecordHistory(ctx, s.DB(), b.ID, user.ID, models.ActionCreated, nil, nil, nil); err != nil {
		t.Fatalf("record history: %v", err)
	}

	if err := s.DeleteTask(ctx, s.DB(), b.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	blocked, err := s.GetBlockedTaskIDs(ctx, s.DB(), a.ID)
	if err != nil {
		t.Fatalf("GetBlockedTaskIDs: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("expected no edges from task A, got %v", blocked)
	}
	blocking, err := s.GetBlockingTaskIDs(ctx, s.DB(), c.ID)
	if err != nil {
		t.Fatalf("GetBlockingTaskIDs: %v", err)
	}
	if len(blocking) != 0 {
		t.Errorf("expected no edges into task C, got %v", blocking)
	}

	count, err := s.CountHistoryByTask(ctx, b.ID)
	if err != nil {
		t.Fatalf("CountHistoryByTask: %v", err)
	}
	if count != 0 {
		t.Errorf("expected history cascade-deleted, got %d records", count)
	}
}

func TestDeleteTask_ReparentsChildrenToNull(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "bob", models.RoleMember)
	parent := seedTask(t, s, user.ID, "parent")

	child := &models.Task{
		Title:        "child",
		Status:       models.StatusTodo,
		Priority:     models.PriorityMedium,
		CreatorID:    user.ID,
		ParentTaskID: &parent.ID,
	}
	if err := s.InsertTask(ctx, s.DB(), child); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := s.DeleteTask(ctx, s.DB(), parent.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	got, err := s.GetTaskByID(ctx, s.DB(), child.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if got.ParentTaskID != nil {
		t.Errorf("expected child re-parented to NULL, got %v", *got.ParentTaskID)
	}
}

func TestWouldCreateCycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "carol", models.RoleMember)
	a := seedTask(t, s, user.ID, "A")
	b := seedTask(t, s, user.ID, "B")
	c := seedTask(t, s, user.ID, "C")

	// A blocks B, B blocks C.
	if _, err := s.InsertDependency(ctx, s.DB(), a.ID, b.ID); err != nil {
		t.Fatalf("insert dependency: %v", err)
	}
	if _, err := s.InsertDependency(ctx, s.DB(), b.ID, c.ID); err != nil {
		t.Fatalf("insert dependency: %v", err)
	}

	cycle, err := s.WouldCreateCycle(ctx, s.DB(), c.ID, a.ID)
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if !cycle {
		t.Error("expected C -> A to be reported as a cycle")
	}

	noCycle, err := s.WouldCreateCycle(ctx, s.DB(), a.ID, c.ID)
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if noCycle {
		t.Error("A -> C should not be reported as a cycle")
	}
}

func TestInsertDependency_DuplicatePair(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "dave", models.RoleMember)
	a := seedTask(t, s, user.ID, "A")
	b := seedTask(t, s, user.ID, "B")

	if _, err := s.InsertDependency(ctx, s.DB(), a.ID, b.ID); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := s.InsertDependency(ctx, s.DB(), a.ID, b.ID)
	if err != models.ErrDuplicateDependency {
		t.Errorf("expected ErrDuplicateDependency, got %v", err)
	}
}

func TestLoadTaskAssociations_SubtaskCount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "erin", models.RoleMember)
	parent := seedTask(t, s, user.ID, "parent")

	for i := 0; i < 3; i++ {
		child := &models.Task{
			Title:        "child",
			Status:       models.StatusTodo,
			Priority:     models.PriorityMedium,
			CreatorID:    user.ID,
			ParentTaskID: &parent.ID,
		}
		if err := s.InsertTask(ctx, s.DB(), child); err != nil {
			t.Fatalf("insert child: %v", err)
		}
	}

	tasks := []models.Task{*parent}
	if err := s.LoadTaskAssociations(ctx, s.DB(), tasks); err != nil {
		t.Fatalf("LoadTaskAssociations: %v", err)
	}
	if tasks[0].SubtaskCount != 3 {
		t.Errorf("expected subtask count 3, got %d", tasks[0].SubtaskCount)
	}
	if tasks[0].Creator == nil || tasks[0].Creator.Username != "erin" {
		t.Error("expected creator to be loaded")
	}
}

func TestFilterTasks_AndReturnsIntersection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "frank", models.RoleMember)
	seedTask(t, s, user.ID, "todo task")

	filter := models.TaskFilter{
		Status:        []models.TaskStatus{models.StatusTodo},
		CreatorIDs:    []int64{99999},
		LogicOperator: models.OperatorAnd,
	}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected empty result under AND, got %d tasks", len(tasks))
	}
}

func TestFilterTasks_OrReturnsUnion(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "grace", models.RoleMember)
	seedTask(t, s, user.ID, "todo task")

	filter := models.TaskFilter{
		Status:        []models.TaskStatus{models.StatusTodo},
		CreatorIDs:    []int64{99999},
		LogicOperator: models.OperatorOr,
	}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task under OR, got %d", len(tasks))
	}
}

func TestFilterTasks_OverdueWithDueDateTo(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "heidi", models.RoleMember)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(models.DateLayout)
	today := time.Now().UTC().Format(models.DateLayout)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(models.DateLayout)

	overdue := seedTaskWithDue(t, s, user.ID, "overdue", &yesterday, models.StatusTodo)
	seedTaskWithDue(t, s, user.ID, "due today", &today, models.StatusTodo)
	seedTaskWithDue(t, s, user.ID, "future", &tomorrow, models.StatusTodo)
	seedTaskWithDue(t, s, user.ID, "done yesterday", &yesterday, models.StatusCompleted)

	filter := models.TaskFilter{
		DueDateTo:     &today,
		IsOverdue:     true,
		LogicOperator: models.OperatorAnd,
	}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != overdue.ID {
		t.Errorf("expected only the overdue todo task, got %d tasks", len(tasks))
	}
}

func seedTaskWithDue(t *testing.T, s *Store, creatorID int64, title string, due *string, status models.TaskStatus) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:     title,
		Status:    status,
		Priority:  models.PriorityMedium,
		DueDate:   due,
		CreatorID: creatorID,
	}
	if err := s.InsertTask(context.Background(), s.DB(), task); err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

func TestFilterTasks_Search(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "ivan", models.RoleMember)
	seedTask(t, s, user.ID, "Deploy API gateway")
	other := &models.Task{
		Title:       "Cleanup",
		Description: "remove stale API keys",
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		CreatorID:   user.ID,
	}
	if err := s.InsertTask(ctx, s.DB(), other); err != nil {
		t.Fatalf("insert task: %v", err)
	}
	seedTask(t, s, user.ID, "Write docs")

	search := "api"
	filter := models.TaskFilter{Search: &search, LogicOperator: models.OperatorAnd}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected search to match title or description (2 tasks), got %d", len(tasks))
	}
}

func TestFilterTasks_HasSubtasks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "judy", models.RoleMember)
	parent := seedTask(t, s, user.ID, "parent")
	child := &models.Task{
		Title:        "child",
		Status:       models.StatusTodo,
		Priority:     models.PriorityMedium,
		CreatorID:    user.ID,
		ParentTaskID: &parent.ID,
	}
	if err := s.InsertTask(ctx, s.DB(), child); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	hasSubtasks := true
	filter := models.TaskFilter{HasSubtasks: &hasSubtasks, LogicOperator: models.OperatorAnd}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != parent.ID {
		t.Errorf("expected only the parent task, got %d tasks", len(tasks))
	}

	hasSubtasks = false
	tasks, err = s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != child.ID {
		t.Errorf("expected only the childless task, got %d tasks", len(tasks))
	}
}

func TestFilterTasks_ParentZeroMeansNoParent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "kate", models.RoleMember)
	root := seedTask(t, s, user.ID, "root")
	child := &models.Task{
		Title:        "child",
		Status:       models.StatusTodo,
		Priority:     models.PriorityMedium,
		CreatorID:    user.ID,
		ParentTaskID: &root.ID,
	}
	if err := s.InsertTask(ctx, s.DB(), child); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	var zero int64 = 0
	filter := models.TaskFilter{ParentTaskID: &zero, LogicOperator: models.OperatorAnd}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != root.ID {
		t.Errorf("expected only the parentless task, got %d tasks", len(tasks))
	}

	filter.ParentTaskID = &root.ID
	tasks, err = s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != child.ID {
		t.Errorf("expected only the child task, got %d tasks", len(tasks))
	}
}

func TestFilterTasks_TagNamesCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "liam", models.RoleMember)
	task := seedTask(t, s, user.ID, "tagged")
	tag, err := s.GetOrCreateTag(ctx, s.DB(), "backend")
	if err != nil {
		t.Fatalf("GetOrCreateTag: %v", err)
	}
	if err := s.SetTaskTags(ctx, s.DB(), task.ID, []int64{tag.ID}); err != nil {
		t.Fatalf("SetTaskTags: %v", err)
	}
	seedTask(t, s, user.ID, "untagged")

	filter := models.TaskFilter{TagNames: []string{"BACKEND"}, LogicOperator: models.OperatorAnd}
	tasks, err := s.FilterTasks(ctx, filter, 0, 100)
	if err != nil {
		t.Fatalf("FilterTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("expected the tagged task only, got %d tasks", len(tasks))
	}
}
