package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vitalsort/triage/pkg/common/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	RoleNurse = "nurse"
)

var (
	ErrBootstrapNotAllowed = errors.New("platform already bootstrapped")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Bootstrap creates the first admin account. It only works on an empty
// user table, so it cannot be replayed against a live deployment.
func (s *Service) Bootstrap(ctx context.Context, req models.BootstrapRequest) (models.User, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrBootstrapNotAllowed
	}
	if req.AdminEmail == "" || req.AdminPassword == "" {
		return models.User{}, fmt.Errorf("admin email and password required")
	}

	return s.createUser(ctx, req.AdminEmail, req.AdminName, RoleAdmin, req.AdminPassword)
}

func (s *Service) RegisterUser(ctx context.Context, actor models.User, req models.RegisterUserRequest) (models.User, error) {
	if actor.Role != RoleAdmin {
		return models.User{}, fmt.Errorf("insufficient permissions")
	}
	role := req.Role
	if role == "" {
		role = RoleNurse
	}
	if role != RoleAdmin && role != RoleNurse {
		return models.User{}, fmt.Errorf("unknown role %q", role)
	}
	return s.createUser(ctx, req.Email, req.Name, role, req.Password)
}

func (s *Service) createUser(ctx context.Context, email, name, role, password string) (models.User, error) {
	if password == "" {
		return models.User{}, fmt.Errorf("password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	return s.repo.CreateUser(ctx, CreateUserInput{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	})
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	hash, err := s.repo.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}
