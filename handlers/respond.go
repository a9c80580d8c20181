package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/middleware"
	"task-management/microservices/tasks-service/models"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service sentinel errors onto HTTP status codes.
// Anything unrecognized is an internal error and gets logged.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrParentTaskNotFound),
		errors.Is(err, models.ErrDependencyNotFound),
		errors.Is(err, models.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidAssignee),
		errors.Is(err, models.ErrSelfDependency),
		errors.Is(err, models.ErrDuplicateDependency),
		errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrDependencyCycle),
		errors.Is(err, models.ErrUsernameTaken),
		errors.Is(err, models.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: Unhandled service error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID extracts a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", models.ErrValidation, name)
	}
	return id, nil
}

// pagination reads skip/limit query parameters with the usual defaults.
func pagination(r *http.Request) (skip, limit int) {
	skip = 0
	limit = 100
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return skip, limit
}

// requestActor pulls the authenticated actor the JWT middleware attached.
func requestActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing authentication", http.StatusUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}
