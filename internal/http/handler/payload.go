package handler

import "github.com/aidashboard/dashboard-auth/internal/domain"

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Username string `json:"username" validate:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Verified   bool   `json:"verified"`
	RedirectTo string `json:"redirect_to"`
}

type OTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyResetOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type VerifyResetOTPResponse struct {
	ResetToken string `json:"resetToken"`
}

// ResetPasswordRequest leaves resetToken unvalidated so a missing token
// answers 401 like an invalid one.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,max=128"`
	ResetToken  string `json:"resetToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=128"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
}

type MeResponse struct {
	domain.Identity
	Verified bool `json:"verified"`
}
