package service

import (
	"context"
	"testing"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
)

func TestVerifyEmailSetsVerifiedBit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")

	verified, err := f.verification.IsVerified(ctx, u.ID)
	if err != nil || verified {
		t.Fatalf("new user must be unverified: %v %v", verified, err)
	}
	code, err := f.otp.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := f.verification.VerifyEmail(ctx, u.ID, "a@x.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	verified, err = f.verification.IsVerified(ctx, u.ID)
	if err != nil || !verified {
		t.Fatalf("expected verified after VerifyEmail: %v %v", verified, err)
	}

	again, _ := f.otp.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err := f.verification.VerifyEmail(ctx, u.ID, "a@x.com", again); err != nil {
		t.Fatalf("second verify: %v", err)
	}
	got, _ := f.users.FindByID(ctx, u.ID)
	if got.Roles != 1 {
		t.Fatalf("verifying twice must keep roles at 1, got %d", got.Roles)
	}
}

func TestVerifyEmailPropagatesOTPFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com", "password-1")
	code, _ := f.otp.Issue(ctx, "a@x.com", PurposeEmailVerification)

	expectOTPInvalid(t, f.verification.VerifyEmail(ctx, u.ID, "a@x.com", wrongCode(code)))
	if verified, _ := f.verification.IsVerified(ctx, u.ID); verified {
		t.Fatal("failed OTP must not set the verified bit")
	}
}

func TestIsVerifiedUnknownUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.verification.IsVerified(context.Background(), 12345); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRegisterLocalRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "a@x.com", "password-1")
	if first.IsVerified() {
		t.Fatal("local registration must start unverified")
	}
	_, err := f.userSvc.RegisterLocal(ctx, " A@X.COM", "password-2", "")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	got, err := f.userSvc.FindByEmail(ctx, "a@x.com")
	if err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("find by email: %+v err=%v", got, err)
	}
	missing, err := f.userSvc.FindByEmail(ctx, "nobody@x.com")
	if err != nil || missing != nil {
		t.Fatalf("unknown email must be (nil, nil), got %+v %v", missing, err)
	}
}
