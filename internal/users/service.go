package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rentiva/rentiva/internal/access"
)

const bcryptCost = 12

// RepositoryPort is the persistence dependency of the service.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role string) (User, error)
}

// Service manages operator accounts and role changes.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs the user service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// NewUserInput carries the fields needed to create a user.
type NewUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      access.Role
	CompanyID *uuid.UUID
	Password  string
}

// List returns all users. Only roles that manage grants may enumerate
// accounts.
func (s *Service) List(ctx context.Context, actor access.Identity) ([]User, error) {
	if !access.CanManageGrants(actor.Role) {
		return nil, ErrDenied
	}
	return s.repo.ListUsers(ctx)
}

// Get fetches a user. Actors can always read their own account.
func (s *Service) Get(ctx context.Context, actor access.Identity, userID uuid.UUID) (User, error) {
	if actor.UserID != userID && !access.CanManageGrants(actor.Role) {
		return User{}, ErrDenied
	}
	return s.repo.GetUser(ctx, userID)
}

// Create registers a new user. The actor's role must be allowed to assign
// the requested role.
func (s *Service) Create(ctx context.Context, actor access.Identity, in NewUserInput) (User, error) {
	if !access.CanManageGrants(actor.Role) {
		return User{}, ErrDenied
	}
	if !access.CanAssign(actor.Role, "", in.Role) {
		return User{}, fmt.Errorf("%w: role %s not assignable by %s", ErrDenied, in.Role, actor.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	created, err := s.repo.CreateUser(ctx, User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role.Canonical(),
		CompanyID:    in.CompanyID,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created",
		slog.String("user_id", created.ID.String()),
		slog.String("role", string(created.Role)))
	return created, nil
}

// ChangeRole moves a user to a new role, subject to the transition rules.
func (s *Service) ChangeRole(ctx context.Context, actor access.Identity, userID uuid.UUID, newRole access.Role) (User, error) {
	if !access.CanManageGrants(actor.Role) {
		return User{}, ErrDenied
	}

	current, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if !access.CanAssign(actor.Role, current.Role, newRole) {
		return User{}, fmt.Errorf("%w: transition %s -> %s not allowed for %s",
			ErrDenied, current.Role, newRole, actor.Role)
	}

	updated, err := s.repo.UpdateUserRole(ctx, userID, string(newRole.Canonical()))
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user role changed",
		slog.String("user_id", userID.String()),
		slog.String("from", string(current.Role)),
		slog.String("to", string(updated.Role)))
	return updated, nil
}

// VerifyPassword checks a candidate password against a stored account.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrDenied
	}
	return user, nil
}
