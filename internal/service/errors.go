package service

import "github.com/aidashboard/dashboard-auth/internal/apperror"

const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeWrongAuthMethod    = "WRONG_AUTH_METHOD"
	CodeWrongPassword      = "WRONG_PASSWORD"
	CodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeSessionConflict    = "SESSION_CONFLICT"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	CodeEmailInUse         = "EMAIL_IN_USE"
	CodeOAuthEmailMissing  = "OAUTH_EMAIL_MISSING"
	CodeOAuthFailed        = "OAUTH_FAILED"
)

func errInvalidCredentials() *apperror.Error {
	return apperror.Unauthorized(CodeInvalidCredentials, "Invalid credentials")
}

func errInvalidRefreshToken() *apperror.Error {
	return apperror.Unauthorized(CodeInvalidToken, "Invalid or expired refresh token")
}

func errInvalidAccessToken() *apperror.Error {
	return apperror.Unauthorized(CodeInvalidToken, "Invalid or expired access token")
}

func errUserNotFound() *apperror.Error {
	return apperror.NotFound(CodeUserNotFound, "User not found")
}
