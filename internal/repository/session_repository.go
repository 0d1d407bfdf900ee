package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/domain"

	"gorm.io/gorm"
)

type SessionRepository interface {
	FindByUserDevice(ctx context.Context, userID int64, userAgent string) (*domain.Session, error)
	ListByUserID(ctx context.Context, userID int64) ([]domain.Session, error)
	ReplaceForDevice(ctx context.Context, s *domain.Session) error
	ReplaceIfCurrent(ctx context.Context, currentID int64, s *domain.Session) error
	DeleteByUserDevice(ctx context.Context, userID int64, userAgent string) (int64, error)
	DeleteByID(ctx context.Context, userID, id int64) (int64, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) FindByUserDevice(ctx context.Context, userID int64, userAgent string) (*domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND user_agent_sha256 = ?", userID, domain.DeviceDigest(userAgent)).
		Limit(1).
		Find(&sessions).Error
	if err == nil && len(sessions) == 0 {
		err = ErrSessionNotFound
	}
	record(ctx, "session", "find_by_user_device", err)
	if err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

func (r *GormSessionRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	record(ctx, "session", "list_by_user_id", err)
	return sessions, err
}

// ReplaceForDevice deletes every session of (s.UserID, s.UserAgent) and
// inserts s in the same transaction.
func (r *GormSessionRepository) ReplaceForDevice(ctx context.Context, s *domain.Session) error {
	s.UserAgentHash = domain.DeviceDigest(s.UserAgent)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND user_agent_sha256 = ?", s.UserID, s.UserAgentHash).
			Delete(&domain.Session{}).Error; err != nil {
			return fmt.Errorf("delete device sessions: %w", err)
		}
		return insertSession(tx, s)
	})
	record(ctx, "session", "replace_for_device", err)
	return err
}

// ReplaceIfCurrent swaps the session with id currentID for s, but only if
// that row still exists for the same device. A concurrent redeem that
// already replaced it leaves nothing to delete and gets ErrSessionNotFound.
func (r *GormSessionRepository) ReplaceIfCurrent(ctx context.Context, currentID int64, s *domain.Session) error {
	s.UserAgentHash = domain.DeviceDigest(s.UserAgent)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ? AND user_agent_sha256 = ?", currentID, s.UserID, s.UserAgentHash).
			Delete(&domain.Session{})
		if res.Error != nil {
			return fmt.Errorf("delete current session: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrSessionNotFound
		}
		return insertSession(tx, s)
	})
	record(ctx, "session", "replace_if_current", err)
	return err
}

func (r *GormSessionRepository) DeleteByUserDevice(ctx context.Context, userID int64, userAgent string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND user_agent_sha256 = ?", userID, domain.DeviceDigest(userAgent)).
		Delete(&domain.Session{})
	record(ctx, "session", "delete_by_user_device", res.Error)
	return res.RowsAffected, res.Error
}

// DeleteByID removes one session, scoped to its owner.
func (r *GormSessionRepository) DeleteByID(ctx context.Context, userID, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Session{})
	record(ctx, "session", "delete_by_id", res.Error)
	return res.RowsAffected, res.Error
}

func (r *GormSessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Session{})
	record(ctx, "session", "cleanup_expired", res.Error)
	return res.RowsAffected, res.Error
}

func insertSession(tx *gorm.DB, s *domain.Session) error {
	s.UserAgentHash = domain.DeviceDigest(s.UserAgent)
	if err := tx.Create(s).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrSessionConflict
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}
