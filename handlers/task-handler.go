package handlers

import (
	"encoding/json"
	"net/http"

	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/services"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(r.Context(), req, actor)
	if err != nil {
		logging.Logger.Warnf("Event ID: TASK_CREATE_FAILED, Description: Failed to create task: %v", err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %d created by user %d", task.ID, actor.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)
	tasks, err := h.service.ListTasks(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) FilterTasks(w http.ResponseWriter, r *http.Request) {
	var filter models.TaskFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	skip, limit := pagination(r)
	tasks, err := h.service.FilterTasks(r.Context(), filter, skip, limit)
	if err != nil {
		logging.Logger.Warnf("Event ID: TASK_FILTER_FAILED, Description: Failed to filter tasks: %v", err)
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	detail, err := h.service.GetTask(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), taskID, req, actor)
	if err != nil {
		logging.Logger.Warnf("Event ID: TASK_UPDATE_FAILED, Description: Failed to update task %d: %v", taskID, err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %d updated by user %d", taskID, actor.ID)
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) BulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}

	var req models.BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.BulkUpdateTasks(r.Context(), req, actor)
	if err != nil {
		logging.Logger.Warnf("Event ID: TASK_BULK_UPDATE_FAILED, Description: Bulk update failed: %v", err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_BULK_UPDATED, Description: %d tasks updated by user %d", len(result.UpdatedTaskIDs), actor.ID)
	writeJSON(w, http.StatusOK, result)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.service.DeleteTask(r.Context(), taskID, actor); err != nil {
		logging.Logger.Warnf("Event ID: TASK_DELETE_FAILED, Description: Failed to delete task %d: %v", taskID, err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %d deleted by user %d", taskID, actor.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) GetTaskHistory(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	history, err := h.service.GetTaskHistory(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []models.TaskHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}
