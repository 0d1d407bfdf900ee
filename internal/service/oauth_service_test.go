package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"

	"golang.org/x/oauth2"
)

type testOAuthProvider struct {
	exchangeFn func(ctx context.Context, code string) (*oauth2.Token, error)
	userinfoFn func(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error)
}

func (p testOAuthProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p testOAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeFn != nil {
		return p.exchangeFn(ctx, code)
	}
	return &oauth2.Token{AccessToken: "token", RefreshToken: "refresh"}, nil
}

func (p testOAuthProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	if p.userinfoFn != nil {
		return p.userinfoFn(ctx, token)
	}
	return &OAuthUserInfo{ProviderUserID: "provider-id", Email: "user@example.com", EmailVerified: true, Name: "User"}, nil
}

func userinfo(info OAuthUserInfo) testOAuthProvider {
	return testOAuthProvider{userinfoFn: func(context.Context, *oauth2.Token) (*OAuthUserInfo, error) {
		return &info, nil
	}}
}

func TestOAuthServiceHandleGoogleCallbackExchangeError(t *testing.T) {
	svc := NewOAuthService(
		testOAuthProvider{exchangeFn: func(context.Context, string) (*oauth2.Token, error) {
			return nil, context.DeadlineExceeded
		}},
		nil,
		nil,
		nil,
	)

	_, err := svc.HandleGoogleCallback(context.Background(), "code")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestOAuthServiceHandleGoogleCallbackUserInfoError(t *testing.T) {
	userinfoErr := errors.New("userinfo status: 500")
	svc := NewOAuthService(
		testOAuthProvider{userinfoFn: func(context.Context, *oauth2.Token) (*OAuthUserInfo, error) {
			return nil, userinfoErr
		}},
		nil,
		nil,
		nil,
	)

	_, err := svc.HandleGoogleCallback(context.Background(), "code")
	if !errors.Is(err, userinfoErr) {
		t.Fatalf("expected userinfo error, got %v", err)
	}
}

func TestOAuthServiceRejectsMissingOrUnverifiedEmail(t *testing.T) {
	for name, info := range map[string]OAuthUserInfo{
		"missing":    {ProviderUserID: "p", Email: ""},
		"unverified": {ProviderUserID: "p", Email: "user@example.com", EmailVerified: false},
	} {
		svc := NewOAuthService(userinfo(info), nil, nil, nil)
		_, err := svc.HandleGoogleCallback(context.Background(), "code")
		if !apperror.IsKind(err, apperror.KindUnauthorized) {
			t.Fatalf("%s: expected Unauthorized, got %v", name, err)
		}
	}
}

func TestOAuthServiceCreatesVerifiedUserThenReusesLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewOAuthService(testOAuthProvider{}, f.users, f.links, f.ids)

	first, err := svc.HandleGoogleCallback(ctx, "code")
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if !first.IsVerified() || first.Email != "user@example.com" || first.Username == nil {
		t.Fatalf("unexpected new google user: %+v", first)
	}
	second, err := svc.HandleGoogleCallback(ctx, "code")
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the link to resolve the same user, got %d vs %d", second.ID, first.ID)
	}
	link, err := f.links.FindByProviderUserID(ctx, domain.ProviderGoogle, "provider-id")
	if err != nil || link.RefreshToken != "refresh" {
		t.Fatalf("expected stored provider tokens, got %+v err=%v", link, err)
	}
}

func TestOAuthServiceLinksExistingLocalAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	local := f.register(t, "user@example.com", "password-1")
	svc := NewOAuthService(testOAuthProvider{}, f.users, f.links, f.ids)

	got, err := svc.HandleGoogleCallback(ctx, "code")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if got.ID != local.ID {
		t.Fatalf("expected existing user to be linked, got %d want %d", got.ID, local.ID)
	}
	if _, err := f.credSvc.Authenticate(ctx, "user@example.com", "password-1"); err != nil {
		t.Fatalf("linking must keep the local password: %v", err)
	}
}

func TestClassifyOAuthError(t *testing.T) {
	if got := classifyOAuthError(context.Canceled); got != "context_canceled" {
		t.Fatalf("expected context_canceled, got %q", got)
	}
	if got := classifyOAuthError(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("expected timeout, got %q", got)
	}
	if got := classifyOAuthError(errors.New("userinfo status: 401")); got != "userinfo_status" {
		t.Fatalf("expected userinfo_status, got %q", got)
	}
	if got := classifyOAuthError(errors.New("missing required userinfo fields")); got != "invalid_userinfo" {
		t.Fatalf("expected invalid_userinfo, got %q", got)
	}
	if got := classifyOAuthError(errors.New("oauth2: cannot fetch token")); got != "oauth2_exchange" {
		t.Fatalf("expected oauth2_exchange, got %q", got)
	}
	if got := classifyOAuthError(apperror.Unauthorized(CodeOAuthEmailMissing, "x")); got != "oauth_email_missing" {
		t.Fatalf("expected oauth_email_missing, got %q", got)
	}
}
