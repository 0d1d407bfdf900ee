package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aidashboard/dashboard-auth/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrOAuthLinkNotFound  = errors.New("oauth link not found")
	ErrOAuthLinkExists    = errors.New("oauth link already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionConflict    = errors.New("session already exists for device")
)

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// record counts the outcome of one repository call. Sentinel errors from
// this package count as not_found or conflict rather than error.
func record(ctx context.Context, repo, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCredentialNotFound),
		errors.Is(err, ErrOAuthLinkNotFound), errors.Is(err, ErrSessionNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrOAuthLinkExists), errors.Is(err, ErrSessionConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	observability.RecordRepositoryOperation(ctx, repo, op, outcome)
}
