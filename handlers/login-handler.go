package handlers

import (
	"encoding/json"
	"net/http"

	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/services"
)

type AuthHandler struct {
	service *services.UserService
}

func NewAuthHandler(service *services.UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		logging.Logger.Warnf("Event ID: USER_REGISTER_FAILED, Description: Registration failed for username %q: %v", req.Username, err)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %q registered with id %d", user.Username, user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		logging.Logger.Warnf("Event ID: USER_LOGIN_FAILED, Description: Login failed for username %q", req.Username)
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: USER_LOGIN, Description: User %q logged in", req.Username)
	writeJSON(w, http.StatusOK, token)
}
