package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"task-management/microservices/tasks-service/models"
	"task-management/microservices/tasks-service/repositories"
	"task-management/microservices/tasks-service/utils"
)

// UserService handles registration, login and user lookups. Everything
// beyond issuing the actor identity (password reset, verification flows)
// lives outside this service.
type UserService struct {
	store *repositories.Store
	jwt   *utils.JWTManager
}

func NewUserService(store *repositories.Store, jwt *utils.JWTManager) *UserService {
	return &UserService{store: store, jwt: jwt}
}

// Register creates a new active user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = html.EscapeString(strings.TrimSpace(req.Username))
	req.Email = html.EscapeString(strings.TrimSpace(req.Email))
	req.FullName = html.EscapeString(strings.TrimSpace(req.FullName))

	if req.Username == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", models.ErrValidation)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters long", models.ErrValidation)
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", models.ErrValidation, req.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          req.Email,
		Username:       req.Username,
		FullName:       req.FullName,
		HashedPassword: string(hashedPassword),
		Role:           req.Role,
		IsActive:       true,
	}
	return s.store.CreateUser(ctx, user)
}

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &models.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// GetUsers returns all registered users.
func (s *UserService) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUserByID returns one user or models.ErrUserNotFound.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, s.store.DB(), id)
}
