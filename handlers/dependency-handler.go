package handlers

import (
	"encoding/json"
	"net/http"

	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/services"
)

type DependencyHandler struct {
	service *services.DependencyService
}

func NewDependencyHandler(service *services.DependencyService) *DependencyHandler {
	return &DependencyHandler{service: service}
}

// AddDependency creates an edge where the task in the URL is blocked by the
// task named in the body.
func (h *DependencyHandler) AddDependency(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	blockedTaskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req models.CreateDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dep, err := h.service.AddDependency(r.Context(), req.BlockingTaskID, blockedTaskID, actor)
	if err != nil {
		logging.Logger.Warnf("Event ID: DEPENDENCY_ADD_FAILED, Description: Failed to add dependency %d -> %d: %v", req.BlockingTaskID, blockedTaskID, err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: DEPENDENCY_ADDED, Description: Task %d is now blocked by task %d", blockedTaskID, req.BlockingTaskID)
	writeJSON(w, http.StatusCreated, dep)
}

func (h *DependencyHandler) RemoveDependency(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	dependencyID, err := pathID(r, "dependencyID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.service.RemoveDependency(r.Context(), dependencyID, actor); err != nil {
		logging.Logger.Warnf("Event ID: DEPENDENCY_REMOVE_FAILED, Description: Failed to remove dependency %d: %v", dependencyID, err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: DEPENDENCY_REMOVED, Description: Dependency %d removed by user %d", dependencyID, actor.ID)
	w.WriteHeader(http.StatusNoContent)
}
