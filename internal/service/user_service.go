package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/idgen"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

type UserService struct {
	users  repository.UserRepository
	hasher security.Hasher
	ids    idgen.Generator
}

func NewUserService(users repository.UserRepository, hasher security.Hasher, ids idgen.Generator) *UserService {
	return &UserService{users: users, hasher: hasher, ids: ids}
}

// RegisterLocal creates an unverified user together with its password
// credential.
func (s *UserService) RegisterLocal(ctx context.Context, email, password, username string) (*domain.User, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{ID: s.ids.NewID(), Email: normalizeEmail(email)}
	if u := strings.TrimSpace(username); u != "" {
		user.Username = &u
	}
	if err := s.users.CreateWithCredential(ctx, user, &domain.Credential{PasswordHash: &hash}); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.Conflict(CodeEmailInUse, "Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// FindByEmail returns (nil, nil) for an unknown address.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
