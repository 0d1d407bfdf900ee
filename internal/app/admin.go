package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/aidashboard/dashboard-auth/internal/database"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

// Admin backs the operator subcommands that need the store but not the
// HTTP surface.
type Admin struct {
	DB     *gorm.DB
	Tokens *service.TokenService
}

func NewAdmin(db *gorm.DB, tokens *service.TokenService) *Admin {
	return &Admin{DB: db, Tokens: tokens}
}

func (a *Admin) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, a.DB, "postgres")
}

func (a *Admin) Sessions(ctx context.Context, userID int64) ([]domain.Session, error) {
	return a.Tokens.ListSessions(ctx, userID)
}

func (a *Admin) CleanupSessions(ctx context.Context) (int64, error) {
	return a.Tokens.CleanupExpiredSessions(ctx)
}
