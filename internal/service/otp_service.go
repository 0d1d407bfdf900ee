package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/security"
)

type OTPPurpose string

const (
	PurposeEmailVerification OTPPurpose = "email-verification"
	PurposePasswordReset     OTPPurpose = "password-reset"
)

const CodeOTPInvalid = "OTP_INVALID"

func errOTPInvalid() *apperror.Error {
	return apperror.BadRequest(CodeOTPInvalid, "OTP has expired or is invalid")
}

type OTPService struct {
	store       SecretStore
	hasher      security.Hasher
	ttl         time.Duration
	maxAttempts int64
	generate    func() (string, error)
}

func NewOTPService(store SecretStore, hasher security.Hasher, ttl time.Duration, maxAttempts int64) *OTPService {
	return &OTPService{
		store:       store,
		hasher:      hasher,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		generate:    security.GenerateOTP,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue stores a fresh code for (email, purpose), replacing any previous
// one and restarting the attempt budget, and returns the plaintext.
func (s *OTPService) Issue(ctx context.Context, email string, purpose OTPPurpose) (string, error) {
	email = normalizeEmail(email)
	code, err := s.generate()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(ctx, code)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	if err := s.store.Set(ctx, otpKey(purpose, email), hash, s.ttl); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	if err := s.store.Del(ctx, otpAttemptsKey(purpose, email)); err != nil {
		return "", fmt.Errorf("reset otp attempts: %w", err)
	}
	observability.RecordOTPEvent(ctx, string(purpose), "issued")
	return code, nil
}

// Validate consumes the code on success. Missing, expired and wrong codes
// fail identically; the last allowed failure also discards the code.
func (s *OTPService) Validate(ctx context.Context, email, code string, purpose OTPPurpose) error {
	email = normalizeEmail(email)
	key := otpKey(purpose, email)
	stored, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if !ok {
		observability.RecordOTPEvent(ctx, string(purpose), "missing")
		return errOTPInvalid()
	}
	match, err := s.hasher.Verify(ctx, code, stored)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if !match {
		attemptsKey := otpAttemptsKey(purpose, email)
		n, err := s.store.Incr(ctx, attemptsKey, s.ttl)
		if err != nil {
			return fmt.Errorf("count otp attempt: %w", err)
		}
		if n >= s.maxAttempts {
			if err := s.store.Del(ctx, key, attemptsKey); err != nil {
				return fmt.Errorf("discard otp: %w", err)
			}
			observability.RecordOTPEvent(ctx, string(purpose), "exhausted")
		} else {
			observability.RecordOTPEvent(ctx, string(purpose), "rejected")
		}
		return errOTPInvalid()
	}
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	observability.RecordOTPEvent(ctx, string(purpose), "accepted")
	return nil
}

// Clear drops any code for (email, purpose). Deleting a missing key is fine.
func (s *OTPService) Clear(ctx context.Context, email string, purpose OTPPurpose) error {
	return s.store.Del(ctx, otpKey(purpose, normalizeEmail(email)))
}
