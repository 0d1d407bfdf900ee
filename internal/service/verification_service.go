package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/repository"
)

type VerificationService struct {
	users repository.UserRepository
	otp   *OTPService
}

func NewVerificationService(users repository.UserRepository, otp *OTPService) *VerificationService {
	return &VerificationService{users: users, otp: otp}
}

func (s *VerificationService) IsVerified(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, errUserNotFound()
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	return user.IsVerified(), nil
}

// VerifyEmail checks the email-verification code and sets the verified bit.
// OTP failures are returned unchanged.
func (s *VerificationService) VerifyEmail(ctx context.Context, userID int64, email, code string) error {
	if err := s.otp.Validate(ctx, email, code, PurposeEmailVerification); err != nil {
		return err
	}
	if err := s.users.SetRoleBits(ctx, userID, domain.RoleVerified); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errUserNotFound()
		}
		return fmt.Errorf("set verified bit: %w", err)
	}
	if err := s.otp.Clear(ctx, email, PurposeEmailVerification); err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}
