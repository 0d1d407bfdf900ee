package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

// ResetTokens is the slice of the token service the credential service needs.
type ResetTokens interface {
	Issue(kind security.TokenKind, userID int64, device string) (string, error)
	Verify(raw string, kind security.TokenKind) (*security.Claims, bool)
}

type CredentialService struct {
	users         repository.UserRepository
	credentials   repository.CredentialRepository
	store         SecretStore
	hasher        security.Hasher
	tokens        ResetTokens
	resetGrantTTL time.Duration
}

func NewCredentialService(users repository.UserRepository, credentials repository.CredentialRepository, store SecretStore, hasher security.Hasher, tokens ResetTokens, resetGrantTTL time.Duration) *CredentialService {
	return &CredentialService{
		users:         users,
		credentials:   credentials,
		store:         store,
		hasher:        hasher,
		tokens:        tokens,
		resetGrantTTL: resetGrantTTL,
	}
}

// Authenticate answers every failure (unknown email, no credential, no
// password, wrong password) with the same error.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	cred, err := s.credentials.FindByUserID(ctx, user.ID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !cred.HasPassword() {
		return nil, errInvalidCredentials()
	}
	ok, err := s.hasher.Verify(ctx, password, *cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, errInvalidCredentials()
	}
	return user, nil
}

func (s *CredentialService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	cred, err := s.credentials.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return apperror.Unauthorized(CodeWrongAuthMethod, "Wrong user authentication method")
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if !cred.HasPassword() {
		return apperror.Unauthorized(CodeWrongAuthMethod, "Wrong user authentication method")
	}
	ok, err := s.hasher.Verify(ctx, oldPassword, *cred.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return apperror.Unauthorized(CodeWrongPassword, "Wrong password")
	}
	return s.setPassword(ctx, userID, newPassword)
}

// IssueResetGrant mints a reset-domain token for the user and stores its
// hash as the single-use grant.
func (s *CredentialService) IssueResetGrant(ctx context.Context, userID int64) (string, error) {
	token, err := s.tokens.Issue(security.TokenReset, userID, "")
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(ctx, token)
	if err != nil {
		return "", fmt.Errorf("hash reset token: %w", err)
	}
	if err := s.store.Set(ctx, resetGrantKey(userID), hash, s.resetGrantTTL); err != nil {
		return "", fmt.Errorf("store reset grant: %w", err)
	}
	return token, nil
}

func (s *CredentialService) ResetPasswordWithToken(ctx context.Context, newPassword, resetToken string) error {
	invalid := apperror.Unauthorized(CodeInvalidResetToken, "Invalid or expired token")
	claims, ok := s.tokens.Verify(resetToken, security.TokenReset)
	if !ok {
		return invalid
	}
	userID, ok := claims.UserID()
	if !ok {
		return invalid
	}
	key := resetGrantKey(userID)
	stored, found, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load reset grant: %w", err)
	}
	if !found {
		return invalid
	}
	match, err := s.hasher.Verify(ctx, resetToken, stored)
	if err != nil {
		return fmt.Errorf("verify reset token: %w", err)
	}
	if !match {
		return apperror.Unauthorized(CodeInvalidToken, "Invalid token")
	}
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("consume reset grant: %w", err)
	}
	if _, err := s.credentials.FindByUserID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return apperror.NotFound(CodeCredentialNotFound, "User not found")
		}
		return fmt.Errorf("load credential: %w", err)
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *CredentialService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.credentials.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return apperror.NotFound(CodeCredentialNotFound, "User not found")
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
