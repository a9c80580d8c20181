package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/utils"
)

func TestJWTAuthMiddleware_AttachesActor(t *testing.T) {
	manager := utils.NewJWTManager("test-secret", 1)
	token, err := manager.GenerateToken(&models.User{ID: 42, Username: "alice", Role: models.RoleManager})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotActor models.Actor
	var gotOK bool
	handler := JWTAuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, gotOK = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotOK {
		t.Fatal("actor missing from request context")
	}
	if gotActor.ID != 42 || gotActor.Username != "alice" || gotActor.Role != models.RoleManager {
		t.Errorf("unexpected actor %+v", gotActor)
	}
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	manager := utils.NewJWTManager("test-secret", 1)
	handler := JWTAuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	manager := utils.NewJWTManager("test-secret", 1)
	handler := JWTAuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestEnableCORS_Preflight(t *testing.T) {
	handler := EnableCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must short-circuit before the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS origin header")
	}
}
