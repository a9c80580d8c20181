package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"

	"task-management/microservices/tasks-service/config"
	"task-management/microservices/tasks-service/handlers"
	"task-management/microservices/tasks-service/logging"
	"task-management/microservices/tasks-service/middleware"
	"task-management/microservices/tasks-service/repositories"
	"task-management/microservices/tasks-service/services"
	"task-management/microservices/tasks-service/utils"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		// Env-file-less deployments are fine; the environment itself wins.
		fmt.Fprintf(os.Stderr, "no .env file loaded: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogFile)
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Service...")

	store, err := repositories.NewStore(cfg.DatabasePath)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: Database ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully opened SQLite database at %s.", cfg.DatabasePath)

	notificationsBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
	notifier := services.NewNotifier(utils.NewHTTPClient(), notificationsBreaker, cfg.NotificationsURL)

	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiryHours)
	userService := services.NewUserService(store, jwtManager)
	taskService := services.NewTaskService(store, notifier)
	dependencyService := services.NewDependencyService(store)

	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)
	dependencyHandler := handlers.NewDependencyHandler(dependencyService)

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware(jwtManager))

	api.HandleFunc("/users", userHandler.GetUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/me", userHandler.GetMe).Methods(http.MethodGet)

	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", taskHandler.GetAllTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/filter", taskHandler.FilterTasks).Methods(http.MethodPost)
	api.HandleFunc("/tasks/bulk-update", taskHandler.BulkUpdateTasks).Methods(http.MethodPost)
	api.HandleFunc("/tasks/dependencies/{dependencyID}", dependencyHandler.RemoveDependency).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}", taskHandler.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", taskHandler.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/history", taskHandler.GetTaskHistory).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}/dependencies", dependencyHandler.AddDependency).Methods(http.MethodPost)

	corsRouter := middleware.EnableCORS(r)

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
