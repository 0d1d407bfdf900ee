package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
)

func newOTPForTest(t *testing.T) (*OTPService, *RedisSecretStore, func(time.Duration)) {
	t.Helper()
	server, client := newRedisClientForTest(t)
	store := NewRedisSecretStore(client, "")
	return NewOTPService(store, newTestHasher(), 5*time.Minute, 3), store, server.FastForward
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func expectOTPInvalid(t *testing.T, err error) {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindBadRequest || appErr.Code != CodeOTPInvalid ||
		appErr.Message != "OTP has expired or is invalid" {
		t.Fatalf("expected OTP_INVALID bad request, got %v", err)
	}
}

func TestOTPValidateSucceedsExactlyOnce(t *testing.T) {
	svc, _, _ := newOTPForTest(t)
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	if err := svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification))
}

func TestOTPThreeWrongAttemptsInvalidateCode(t *testing.T) {
	svc, store, _ := newOTPForTest(t)
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 3; i++ {
		expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", wrongCode(code), PurposeEmailVerification))
	}
	expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification))

	for _, key := range []string{
		otpKey(PurposeEmailVerification, "a@x.com"),
		otpAttemptsKey(PurposeEmailVerification, "a@x.com"),
	} {
		if _, ok, _ := store.Get(ctx, key); ok {
			t.Fatalf("expected %s removed after the third failure", key)
		}
	}
}

func TestOTPTwoWrongAttemptsStillAllowCorrectCode(t *testing.T) {
	svc, _, _ := newOTPForTest(t)
	ctx := context.Background()
	code, _ := svc.Issue(ctx, "a@x.com", PurposePasswordReset)
	for i := 0; i < 2; i++ {
		expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", wrongCode(code), PurposePasswordReset))
	}
	if err := svc.Validate(ctx, "a@x.com", code, PurposePasswordReset); err != nil {
		t.Fatalf("correct code after two misses: %v", err)
	}
}

func TestOTPExpiryAndMismatchLookTheSame(t *testing.T) {
	svc, _, fastForward := newOTPForTest(t)
	ctx := context.Background()
	code, _ := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	mismatch := svc.Validate(ctx, "a@x.com", wrongCode(code), PurposeEmailVerification)

	fastForward(5*time.Minute + time.Second)
	expired := svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification)

	expectOTPInvalid(t, mismatch)
	expectOTPInvalid(t, expired)
	if mismatch.Error() != expired.Error() {
		t.Fatalf("expired and wrong code must be indistinguishable: %q vs %q", mismatch, expired)
	}
}

func TestOTPPurposesAndReissueAreIndependent(t *testing.T) {
	svc, _, _ := newOTPForTest(t)
	ctx := context.Background()
	first, _ := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	for i := 0; i < 2; i++ {
		_ = svc.Validate(ctx, "a@x.com", wrongCode(first), PurposeEmailVerification)
	}
	second, err := svc.Issue(ctx, "A@X.com ", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if second != first {
		expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", first, PurposeEmailVerification))
	}
	_ = svc.Validate(ctx, "a@x.com", wrongCode(second), PurposeEmailVerification)
	if err := svc.Validate(ctx, "a@x.com", second, PurposeEmailVerification); err != nil {
		t.Fatalf("reissue must restart the attempt budget: %v", err)
	}

	reset, _ := svc.Issue(ctx, "a@x.com", PurposePasswordReset)
	expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", reset, PurposeEmailVerification))
}

func TestOTPClearIsIdempotent(t *testing.T) {
	svc, _, _ := newOTPForTest(t)
	ctx := context.Background()
	code, _ := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err := svc.Clear(ctx, "a@x.com", PurposeEmailVerification); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := svc.Clear(ctx, "a@x.com", PurposeEmailVerification); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification))
}

func TestOTPReissueResetsAttemptCounter(t *testing.T) {
	svc, _, _ := newOTPForTest(t)
	ctx := context.Background()
	first, err := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 2; i++ {
		expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", wrongCode(first), PurposeEmailVerification))
	}

	code, err := svc.Issue(ctx, "a@x.com", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	for i := 0; i < 2; i++ {
		expectOTPInvalid(t, svc.Validate(ctx, "a@x.com", wrongCode(code), PurposeEmailVerification))
	}
	if err := svc.Validate(ctx, "a@x.com", code, PurposeEmailVerification); err != nil {
		t.Fatalf("a fresh code gets three attempts, third one failed: %v", err)
	}
}
