package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/idgen"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RedeemResult struct {
	User   *domain.User
	Tokens TokenPair
}

type TokenService struct {
	jwt      *security.JWTManager
	hasher   security.Hasher
	sessions repository.SessionRepository
	users    repository.UserRepository
	ids      idgen.Generator
	now      func() time.Time
}

func NewTokenService(jwt *security.JWTManager, hasher security.Hasher, sessions repository.SessionRepository, users repository.UserRepository, ids idgen.Generator) *TokenService {
	return &TokenService{jwt: jwt, hasher: hasher, sessions: sessions, users: users, ids: ids, now: time.Now}
}

func (s *TokenService) Issue(kind security.TokenKind, userID int64, device string) (string, error) {
	tok, err := s.jwt.Issue(kind, userID, device)
	if errors.Is(err, security.ErrDeviceRequired) {
		return "", apperror.BadRequest(CodeInvalidInput, "Device fingerprint is required for refresh tokens")
	}
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return tok, nil
}

func (s *TokenService) Verify(raw string, kind security.TokenKind) (*security.Claims, bool) {
	return s.jwt.Verify(raw, kind)
}

// RotateSession replaces whatever session the device had with a new one and
// returns the matching token pair.
func (s *TokenService) RotateSession(ctx context.Context, userID int64, device string) (TokenPair, error) {
	pair, sess, err := s.mint(ctx, userID, device)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.ReplaceForDevice(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrSessionConflict) {
			return TokenPair{}, apperror.Unauthorized(CodeSessionConflict, "Session was replaced concurrently")
		}
		return TokenPair{}, fmt.Errorf("replace session: %w", err)
	}
	return pair, nil
}

// RedeemRefreshToken consumes a refresh token. The session row that was
// checked is swapped out by id, so a token can be redeemed at most once
// even when two requests race with it.
func (s *TokenService) RedeemRefreshToken(ctx context.Context, refreshToken string) (*RedeemResult, error) {
	ctx, span := observability.StartSpan(ctx, "token.redeem_refresh")
	defer span.End()

	res, err := s.redeemRefresh(ctx, refreshToken)
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
	}
	observability.RecordAuthRefresh(ctx, status)
	return res, err
}

func (s *TokenService) redeemRefresh(ctx context.Context, refreshToken string) (*RedeemResult, error) {
	claims, ok := s.jwt.Verify(refreshToken, security.TokenRefresh)
	if !ok {
		return nil, errInvalidRefreshToken()
	}
	userID, _ := claims.UserID()
	device := claims.Device

	current, err := s.sessions.FindByUserDevice(ctx, userID, device)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, errInvalidRefreshToken()
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if current.Expired(s.now()) {
		return nil, errInvalidRefreshToken()
	}
	match, err := s.hasher.Verify(ctx, refreshToken, current.RefreshTokenHash)
	if err != nil {
		return nil, fmt.Errorf("verify refresh token: %w", err)
	}
	if !match {
		return nil, errInvalidRefreshToken()
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	pair, next, err := s.mint(ctx, userID, device)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ReplaceIfCurrent(ctx, current.ID, next); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionConflict) {
			return nil, errInvalidRefreshToken()
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return &RedeemResult{User: user, Tokens: pair}, nil
}

func (s *TokenService) RedeemAccessToken(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, ok := s.jwt.Verify(accessToken, security.TokenAccess)
	if !ok {
		return nil, errInvalidAccessToken()
	}
	userID, _ := claims.UserID()
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// DeleteSession ends the device's session; a refresh token minted for it
// can no longer be redeemed.
func (s *TokenService) DeleteSession(ctx context.Context, userID int64, device string) error {
	if _, err := s.sessions.DeleteByUserDevice(ctx, userID, device); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *TokenService) ListSessions(ctx context.Context, userID int64) ([]domain.Session, error) {
	return s.sessions.ListByUserID(ctx, userID)
}

func (s *TokenService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.CleanupExpired(ctx, s.now())
}

func (s *TokenService) mint(ctx context.Context, userID int64, device string) (TokenPair, *domain.Session, error) {
	if device == "" {
		return TokenPair{}, nil, apperror.BadRequest(CodeInvalidInput, "Device fingerprint is required for refresh tokens")
	}
	access, err := s.Issue(security.TokenAccess, userID, "")
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, err := s.Issue(security.TokenRefresh, userID, device)
	if err != nil {
		return TokenPair{}, nil, err
	}
	hash, err := s.hasher.Hash(ctx, refresh)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("hash refresh token: %w", err)
	}
	sess := &domain.Session{
		ID:               s.ids.NewID(),
		UserID:           userID,
		UserAgent:        device,
		UserAgentHash:    domain.DeviceDigest(device),
		RefreshTokenHash: hash,
		ExpiresAt:        s.now().Add(s.jwt.TTL(security.TokenRefresh)),
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, sess, nil
}
