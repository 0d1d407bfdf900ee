package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aidashboard/dashboard-auth/internal/domain"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	CreateWithCredential(ctx context.Context, user *domain.User, cred *domain.Credential) error
	CreateWithOAuthLink(ctx context.Context, user *domain.User, link *domain.OAuthLink) error
	SetRoleBits(ctx context.Context, id int64, bits int64) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	record(ctx, "user", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	record(ctx, "user", "find_by_email", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := createUser(r.db.WithContext(ctx), user)
	record(ctx, "user", "create", err)
	return err
}

// CreateWithCredential inserts the user and its password credential in one
// transaction.
func (r *GormUserRepository) CreateWithCredential(ctx context.Context, user *domain.User, cred *domain.Credential) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		cred.UserID = user.ID
		if err := tx.Create(cred).Error; err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	})
	record(ctx, "user", "create_with_credential", err)
	return err
}

func (r *GormUserRepository) CreateWithOAuthLink(ctx context.Context, user *domain.User, link *domain.OAuthLink) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createUser(tx, user); err != nil {
			return err
		}
		link.UserID = user.ID
		return createOAuthLink(tx, link)
	})
	record(ctx, "user", "create_with_oauth_link", err)
	return err
}

// SetRoleBits ORs bits into the role mask in a single statement, so
// concurrent callers never lose each other's updates.
func (r *GormUserRepository) SetRoleBits(ctx context.Context, id int64, bits int64) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("roles", gorm.Expr("roles | ?", bits))
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	record(ctx, "user", "set_role_bits", err)
	return err
}

func createUser(tx *gorm.DB, user *domain.User) error {
	if err := tx.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
