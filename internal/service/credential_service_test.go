package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

func expectUnauthorized(t *testing.T, err error, message string) {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindUnauthorized || appErr.Message != message {
		t.Fatalf("expected Unauthorized %q, got %v", message, err)
	}
}

func TestAuthenticateReturnsSameUserEachTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")
	for i := 0; i < 2; i++ {
		got, err := f.credSvc.Authenticate(ctx, "A@x.com", "password-1")
		if err != nil || got.ID != u.ID {
			t.Fatalf("authenticate %d: %+v err=%v", i, got, err)
		}
	}
}

func TestAuthenticateFailuresShareOneMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "password-1")
	oauthOnly := &domain.User{ID: f.ids.NewID(), Email: "g@x.com", Roles: domain.RoleVerified}
	if err := f.users.Create(ctx, oauthOnly); err != nil {
		t.Fatalf("create oauth user: %v", err)
	}
	empty := ""
	nullHash := &domain.User{ID: f.ids.NewID(), Email: "n@x.com"}
	if err := f.users.CreateWithCredential(ctx, nullHash, &domain.Credential{PasswordHash: &empty}); err != nil {
		t.Fatalf("create null-hash user: %v", err)
	}

	cases := map[string][2]string{
		"wrong password":    {"a@x.com", "password-2"},
		"unknown email":     {"nobody@x.com", "password-1"},
		"no credential row": {"g@x.com", "password-1"},
		"empty hash":        {"n@x.com", ""},
	}
	for name, in := range cases {
		_, err := f.credSvc.Authenticate(ctx, in[0], in[1])
		var appErr *apperror.Error
		if !errors.As(err, &appErr) || appErr.Code != CodeInvalidCredentials || appErr.Message != "Invalid credentials" {
			t.Fatalf("%s: expected generic invalid credentials, got %v", name, err)
		}
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")

	expectUnauthorized(t, f.credSvc.ChangePassword(ctx, u.ID, "nope", "password-2"), "Wrong password")
	if err := f.credSvc.ChangePassword(ctx, u.ID, "password-1", "password-2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.credSvc.Authenticate(ctx, "a@x.com", "password-2"); err != nil {
		t.Fatalf("new password must authenticate: %v", err)
	}
	if _, err := f.credSvc.Authenticate(ctx, "a@x.com", "password-1"); err == nil {
		t.Fatal("old password must stop working")
	}

	oauthOnly := &domain.User{ID: f.ids.NewID(), Email: "g@x.com"}
	if err := f.users.Create(ctx, oauthOnly); err != nil {
		t.Fatalf("create: %v", err)
	}
	expectUnauthorized(t, f.credSvc.ChangePassword(ctx, oauthOnly.ID, "x", "y"), "Wrong user authentication method")
}

func TestResetFlowRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")

	code, err := f.otp.Issue(ctx, "a@x.com", PurposePasswordReset)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	if err := f.otp.Validate(ctx, "a@x.com", code, PurposePasswordReset); err != nil {
		t.Fatalf("validate otp: %v", err)
	}
	token, err := f.credSvc.IssueResetGrant(ctx, u.ID)
	if err != nil {
		t.Fatalf("issue grant: %v", err)
	}
	if err := f.credSvc.ResetPasswordWithToken(ctx, "password-new", token); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.credSvc.Authenticate(ctx, "a@x.com", "password-1"); err == nil {
		t.Fatal("old password must not authenticate after reset")
	}
	if _, err := f.credSvc.Authenticate(ctx, "a@x.com", "password-new"); err != nil {
		t.Fatalf("new password must authenticate: %v", err)
	}

	expectUnauthorized(t, f.credSvc.ResetPasswordWithToken(ctx, "password-again", token), "Invalid or expired token")
}

func TestResetPasswordRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")

	expectUnauthorized(t, f.credSvc.ResetPasswordWithToken(ctx, "pw", "garbage"), "Invalid or expired token")

	access, err := f.tokens.Issue(security.TokenAccess, u.ID, "")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	expectUnauthorized(t, f.credSvc.ResetPasswordWithToken(ctx, "pw", access), "Invalid or expired token")

	noGrant, _ := f.tokens.Issue(security.TokenReset, u.ID, "")
	expectUnauthorized(t, f.credSvc.ResetPasswordWithToken(ctx, "pw", noGrant), "Invalid or expired token")

	stale, err := f.credSvc.IssueResetGrant(ctx, u.ID)
	if err != nil {
		t.Fatalf("grant 1: %v", err)
	}
	if _, err := f.credSvc.IssueResetGrant(ctx, u.ID); err != nil {
		t.Fatalf("grant 2: %v", err)
	}
	expectUnauthorized(t, f.credSvc.ResetPasswordWithToken(ctx, "pw", stale), "Invalid token")
}

func TestResetPasswordWithoutCredentialIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := &domain.User{ID: f.ids.NewID(), Email: "g@x.com"}
	if err := f.users.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	token, err := f.credSvc.IssueResetGrant(ctx, u.ID)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := f.credSvc.ResetPasswordWithToken(ctx, "pw", token); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
