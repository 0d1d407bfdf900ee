package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/repository"
)

const CodeSessionNotFound = "SESSION_NOT_FOUND"

type SessionView struct {
	ID        int64     `json:"id,string"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IsCurrent bool      `json:"is_current"`
}

// SessionService is the user-facing view of device sessions.
type SessionService struct {
	sessions repository.SessionRepository
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions, now: time.Now}
}

// ListActive returns the unexpired sessions of userID. The one whose device
// matches currentDevice is flagged as current.
func (s *SessionService) ListActive(ctx context.Context, userID int64, currentDevice string) ([]SessionView, error) {
	sessions, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		if session.Expired(now) {
			continue
		}
		views = append(views, SessionView{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			UserAgent: session.UserAgent,
			IsCurrent: currentDevice != "" && session.UserAgent == currentDevice,
		})
	}
	return views, nil
}

// Revoke deletes one of userID's sessions. Its refresh token stops working
// at once; access tokens already minted run out on their own.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID int64) error {
	n, err := s.sessions.DeleteByID(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(CodeSessionNotFound, "Session not found")
	}
	return nil
}
