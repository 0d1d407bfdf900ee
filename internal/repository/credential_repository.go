package repository

import (
	"context"
	"errors"

	"github.com/aidashboard/dashboard-auth/internal/domain"

	"gorm.io/gorm"
)

type CredentialRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.Credential, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

type GormCredentialRepository struct{ db *gorm.DB }

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Credential, error) {
	var c domain.Credential
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrCredentialNotFound
	}
	record(ctx, "credential", "find_by_user_id", err)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCredentialRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.Credential{}).
		Where("user_id = ?", userID).
		Update("password_hash", hash)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrCredentialNotFound
	}
	record(ctx, "credential", "update_password_hash", err)
	return err
}
