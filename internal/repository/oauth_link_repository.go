package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aidashboard/dashboard-auth/internal/domain"

	"gorm.io/gorm"
)

type OAuthLinkRepository interface {
	FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*domain.OAuthLink, error)
	Create(ctx context.Context, link *domain.OAuthLink) error
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string) error
}

type GormOAuthLinkRepository struct{ db *gorm.DB }

func NewOAuthLinkRepository(db *gorm.DB) OAuthLinkRepository {
	return &GormOAuthLinkRepository{db: db}
}

func (r *GormOAuthLinkRepository) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*domain.OAuthLink, error) {
	var l domain.OAuthLink
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrOAuthLinkNotFound
	}
	record(ctx, "oauth_link", "find_by_provider_user_id", err)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *GormOAuthLinkRepository) Create(ctx context.Context, link *domain.OAuthLink) error {
	err := createOAuthLink(r.db.WithContext(ctx), link)
	record(ctx, "oauth_link", "create", err)
	return err
}

// UpdateTokens refreshes the stored provider tokens. Empty values keep the
// previous token since providers only return a refresh token on consent.
func (r *GormOAuthLinkRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string) error {
	updates := map[string]any{}
	if accessToken != "" {
		updates["access_token"] = accessToken
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&domain.OAuthLink{}).Where("id = ?", id).Updates(updates)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrOAuthLinkNotFound
	}
	record(ctx, "oauth_link", "update_tokens", err)
	return err
}

func createOAuthLink(tx *gorm.DB, link *domain.OAuthLink) error {
	if err := tx.Create(link).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrOAuthLinkExists
		}
		return fmt.Errorf("create oauth link: %w", err)
	}
	return nil
}
