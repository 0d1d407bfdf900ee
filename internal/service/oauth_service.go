package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/idgen"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/repository"

	"golang.org/x/oauth2"
)

type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
}

type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error)
}

type OAuthService struct {
	provider OAuthProvider
	users    repository.UserRepository
	links    repository.OAuthLinkRepository
	ids      idgen.Generator
}

func NewOAuthService(provider OAuthProvider, users repository.UserRepository, links repository.OAuthLinkRepository, ids idgen.Generator) *OAuthService {
	return &OAuthService{provider: provider, users: users, links: links, ids: ids}
}

func (s *OAuthService) Enabled() bool { return s != nil && s.provider != nil }

func (s *OAuthService) AuthCodeURL(state string) string {
	return s.provider.AuthCodeURL(state)
}

// HandleGoogleCallback exchanges the code and resolves the Google account
// to a local user: existing link first, then an existing user with the same
// email (which gets linked), else a new verified user.
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, code string) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "oauth.google_callback")
	defer span.End()

	user, err := s.handleCallback(ctx, code)
	if err != nil {
		span.RecordError(err)
		observability.RecordAuthLogin(ctx, domain.ProviderGoogle, "failure")
		slog.WarnContext(ctx, "google callback failed", "reason", classifyOAuthError(err))
		return nil, err
	}
	observability.RecordAuthLogin(ctx, domain.ProviderGoogle, "success")
	return user, nil
}

func (s *OAuthService) handleCallback(ctx context.Context, code string) (*domain.User, error) {
	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange google code: %w", err)
	}
	info, err := s.provider.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch google userinfo: %w", err)
	}
	if info.ProviderUserID == "" {
		return nil, errors.New("missing required userinfo fields")
	}
	email := normalizeEmail(info.Email)
	if email == "" {
		return nil, apperror.Unauthorized(CodeOAuthEmailMissing, "No email returned from Google")
	}
	if !info.EmailVerified {
		return nil, apperror.Unauthorized(CodeOAuthEmailMissing, "Google email is not verified")
	}

	link, err := s.links.FindByProviderUserID(ctx, domain.ProviderGoogle, info.ProviderUserID)
	switch {
	case err == nil:
		if err := s.links.UpdateTokens(ctx, link.ID, token.AccessToken, token.RefreshToken); err != nil {
			return nil, fmt.Errorf("update google tokens: %w", err)
		}
		return s.loadUser(ctx, link.UserID)
	case !errors.Is(err, repository.ErrOAuthLinkNotFound):
		return nil, fmt.Errorf("load google link: %w", err)
	}

	newLink := &domain.OAuthLink{
		ID:             s.ids.NewID(),
		Provider:       domain.ProviderGoogle,
		ProviderUserID: info.ProviderUserID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		newLink.UserID = existing.ID
		if err := s.links.Create(ctx, newLink); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("load user by email: %w", err)
	}

	user := &domain.User{ID: s.ids.NewID(), Email: email, Roles: domain.RoleVerified}
	if name := strings.TrimSpace(info.Name); name != "" {
		user.Username = &name
	}
	if err := s.users.CreateWithOAuthLink(ctx, user, newLink); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	return user, nil
}

func (s *OAuthService) loadUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func classifyOAuthError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if appErr, ok := apperror.As(err); ok {
		return strings.ToLower(appErr.Code)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "userinfo status"):
		return "userinfo_status"
	case strings.Contains(msg, "missing required userinfo fields"):
		return "invalid_userinfo"
	case strings.Contains(msg, "oauth2"):
		return "oauth2_exchange"
	default:
		return "other"
	}
}
