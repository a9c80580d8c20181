package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/repositories"
)

// DependencyService maintains the directed blocking/blocked edges between
// tasks.
type DependencyService struct {
	store *repositories.Store
}

func NewDependencyService(store *repositories.Store) *DependencyService {
	return &DependencyService{store: store}
}

// AddDependency creates a blocking -> blocked edge. Preconditions are
// checked in order: both tasks exist, no self-edge, no duplicate ordered
// pair, and the new edge must not close a cycle over the existing edges.
// The history record lands on the blocked task in the same transaction.
func (s *DependencyService) AddDependency(ctx context.Context, blockingTaskID, blockedTaskID int64, actor models.Actor) (*models.TaskDependency, error) {
	if blockingTaskID <= 0 || blockedTaskID <= 0 {
		return nil, fmt.Errorf("%w: task ids must be positive", models.ErrValidation)
	}

	var dep *models.TaskDependency
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		blockingExists, err := s.store.TaskExists(ctx, tx, blockingTaskID)
		if err != nil {
			return err
		}
		blockedExists, err := s.store.TaskExists(ctx, tx, blockedTaskID)
		if err != nil {
			return err
		}
		if !blockingExists || !blockedExists {
			return models.ErrTaskNotFound
		}

		if blockingTaskID == blockedTaskID {
			return models.ErrSelfDependency
		}

		exists, err := s.store.DependencyExists(ctx, tx, blockingTaskID, blockedTaskID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateDependency
		}

		cycle, err := s.store.WouldCreateCycle(ctx, tx, blockingTaskID, blockedTaskID)
		if err != nil {
			return err
		}
		if cycle {
			return models.ErrDependencyCycle
		}

		dep, err = s.store.InsertDependency(ctx, tx, blockingTaskID, blockedTaskID)
		if err != nil {
			return err
		}

		newValue := strconv.FormatInt(blockingTaskID, 10)
		return s.store.RecordHistory(ctx, tx, blockedTaskID, actor.ID,
			models.ActionDependencyAdded, strPtr("blocking_task"), nil, &newValue)
	})
	if err != nil {
		return nil, err
	}
	return dep, nil
}

// RemoveDependency deletes the edge and records the removal on the blocked
// task, with the blocking task id moved to the old value.
func (s *DependencyService) RemoveDependency(ctx context.Context, dependencyID int64, actor models.Actor) error {
	if dependencyID <= 0 {
		return fmt.Errorf("%w: dependency id must be positive", models.ErrValidation)
	}
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		dep, err := s.store.GetDependency(ctx, tx, dependencyID)
		if err != nil {
			return err
		}

		oldValue := strconv.FormatInt(dep.BlockingTaskID, 10)
		if err := s.store.RecordHistory(ctx, tx, dep.BlockedTaskID, actor.ID,
			models.ActionDependencyRemoved, strPtr("blocking_task"), &oldValue, nil); err != nil {
			return err
		}
		return s.store.DeleteDependency(ctx, tx, dependencyID)
	})
}
