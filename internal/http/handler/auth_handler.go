package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/http/middleware"
	"github.com/aidashboard/dashboard-auth/internal/http/response"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/security"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

const (
	CodeUserAgentMissing  = "USER_AGENT_MISSING"
	CodeOAuthStateInvalid = "OAUTH_STATE_INVALID"
	CodeResetTokenMissing = "RESET_TOKEN_MISSING"
	CodeOAuthDisabled     = "OAUTH_DISABLED"
)

// CodeMailer delivers OTP codes. Implementations must not block the request.
type CodeMailer interface {
	SendVerificationCode(ctx context.Context, to, code string)
	SendPasswordResetCode(ctx context.Context, to, code string)
}

type AuthDeps struct {
	Users              *service.UserService
	Credentials        *service.CredentialService
	Tokens             *service.TokenService
	OTP                *service.OTPService
	Verification       *service.VerificationService
	OAuth              *service.OAuthService
	Mailer             CodeMailer
	Cookies            *security.CookieManager
	FrontendURL        string
	RevealUnknownEmail bool
}

type AuthHandler struct {
	deps AuthDeps
}

func NewAuthHandler(deps AuthDeps) *AuthHandler {
	deps.FrontendURL = strings.TrimRight(deps.FrontendURL, "/")
	return &AuthHandler{deps: deps}
}

func errUserAgentMissing() *apperror.Error {
	return apperror.Unauthorized(CodeUserAgentMissing, "Couldn't get user agent")
}

// Register creates the account before the device check, so a request
// without a User-Agent still leaves the user and credential rows behind.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ctx := r.Context()
	user, err := h.deps.Users.RegisterLocal(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	device, ok := security.DeviceFingerprint(r)
	if !ok {
		response.FromError(w, r, errUserAgentMissing())
		return
	}
	pair, err := h.deps.Tokens.RotateSession(ctx, user.ID, device)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	code, err := h.deps.OTP.Issue(ctx, user.Email, service.PurposeEmailVerification)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	h.deps.Mailer.SendVerificationCode(ctx, user.Email, code)

	observability.Audit(r, "auth.register", "user_id", user.ID)
	h.deps.Cookies.IssueTokens(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, r, http.StatusOK, UserResponse{Message: "User successfully registered", User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ctx := r.Context()
	user, err := h.deps.Credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		observability.RecordAuthLogin(ctx, "local", "failure")
		response.FromError(w, r, err)
		return
	}
	device, ok := security.DeviceFingerprint(r)
	if !ok {
		observability.RecordAuthLogin(ctx, "local", "failure")
		response.FromError(w, r, errUserAgentMissing())
		return
	}
	pair, err := h.deps.Tokens.RotateSession(ctx, user.ID, device)
	if err != nil {
		observability.RecordAuthLogin(ctx, "local", "failure")
		response.FromError(w, r, err)
		return
	}
	verified, err := h.deps.Verification.IsVerified(ctx, user.ID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.RecordAuthLogin(ctx, "local", "success")
	observability.Audit(r, "auth.login", "user_id", user.ID, "provider", "local")
	h.deps.Cookies.IssueTokens(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, r, http.StatusOK, LoginResponse{Verified: verified, RedirectTo: h.landingURL(verified)})
}

// Logout deletes the device's session row and clears the cookie, so a
// captured refresh token stops working too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	device, ok := h.logoutDevice(r, id.ID)
	if !ok {
		observability.RecordAuthLogout(r.Context(), "failure")
		response.FromError(w, r, errUserAgentMissing())
		return
	}
	if err := h.deps.Tokens.DeleteSession(r.Context(), id.ID, device); err != nil {
		observability.RecordAuthLogout(r.Context(), "failure")
		response.FromError(w, r, err)
		return
	}
	observability.RecordAuthLogout(r.Context(), "success")
	observability.Audit(r, "auth.logout", "user_id", id.ID)
	h.deps.Cookies.ClearRefresh(w)
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// logoutDevice names the session to end. Without a User-Agent it falls back
// to the device bound into the caller's refresh cookie.
func (h *AuthHandler) logoutDevice(r *http.Request, userID int64) (string, bool) {
	if device, ok := security.DeviceFingerprint(r); ok {
		return device, true
	}
	claims, ok := h.deps.Tokens.Verify(security.RefreshFromRequest(r), security.TokenRefresh)
	if !ok || claims.Device == "" {
		return "", false
	}
	if sub, ok := claims.UserID(); !ok || sub != userID {
		return "", false
	}
	return claims.Device, true
}

func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if !h.deps.OAuth.Enabled() {
		response.Error(w, r, http.StatusNotFound, CodeOAuthDisabled, "Google sign-in is not enabled", nil)
		return
	}
	state, err := security.RandomToken(32)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	h.deps.Cookies.SetOAuthState(w, state)
	http.Redirect(w, r, h.deps.OAuth.AuthCodeURL(state), http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.deps.OAuth.Enabled() {
		response.Error(w, r, http.StatusNotFound, CodeOAuthDisabled, "Google sign-in is not enabled", nil)
		return
	}
	q := r.URL.Query()
	if !h.deps.Cookies.ConsumeOAuthState(w, r, q.Get("state")) {
		response.Error(w, r, http.StatusUnauthorized, CodeOAuthStateInvalid, "Login failed", nil)
		return
	}
	if q.Get("error") != "" || q.Get("code") == "" {
		response.Error(w, r, http.StatusUnauthorized, service.CodeOAuthFailed, "Login failed", nil)
		return
	}
	ctx := r.Context()
	user, err := h.deps.OAuth.HandleGoogleCallback(ctx, q.Get("code"))
	if err != nil {
		if _, ok := apperror.As(err); !ok {
			slog.WarnContext(ctx, "google sign-in failed", "error", err)
			err = apperror.Unauthorized(service.CodeOAuthFailed, "Login failed")
		}
		response.FromError(w, r, err)
		return
	}
	device, ok := security.DeviceFingerprint(r)
	if !ok {
		response.FromError(w, r, errUserAgentMissing())
		return
	}
	pair, err := h.deps.Tokens.RotateSession(ctx, user.ID, device)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	verified, err := h.deps.Verification.IsVerified(ctx, user.ID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "user_id", user.ID, "provider", domain.ProviderGoogle)
	h.deps.Cookies.IssueTokens(w, pair.AccessToken, pair.RefreshToken)
	http.Redirect(w, r, h.landingURL(verified), http.StatusFound)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	var req OTPRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.deps.Verification.VerifyEmail(r.Context(), id.ID, id.Email, req.OTP); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "auth.email_verified", "user_id", id.ID)
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "Successfully verified email"})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	code, err := h.deps.OTP.Issue(r.Context(), id.Email, service.PurposeEmailVerification)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	h.deps.Mailer.SendVerificationCode(r.Context(), id.Email, code)
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "New verification email sent"})
}

// RequestPasswordReset answers the same way for known and unknown addresses
// unless RevealUnknownEmail is set.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ctx := r.Context()
	user, err := h.deps.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	sent := MessageResponse{Message: "Password reset code sent to users email"}
	if user == nil {
		if h.deps.RevealUnknownEmail {
			response.Error(w, r, http.StatusUnauthorized, service.CodeUserNotFound, "No user registered with this email", nil)
			return
		}
		response.JSON(w, r, http.StatusOK, sent)
		return
	}
	code, err := h.deps.OTP.Issue(ctx, user.Email, service.PurposePasswordReset)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	h.deps.Mailer.SendPasswordResetCode(ctx, user.Email, code)
	observability.Audit(r, "auth.password_reset_requested", "user_id", user.ID)
	response.JSON(w, r, http.StatusOK, sent)
}

func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ctx := r.Context()
	if err := h.deps.OTP.Validate(ctx, req.Email, req.OTP, service.PurposePasswordReset); err != nil {
		response.FromError(w, r, err)
		return
	}
	user, err := h.deps.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if user == nil {
		response.Error(w, r, http.StatusNotFound, service.CodeUserNotFound, "User not found", nil)
		return
	}
	token, err := h.deps.Credentials.IssueResetGrant(ctx, user.ID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, VerifyResetOTPResponse{ResetToken: token})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ResetToken) == "" {
		response.Error(w, r, http.StatusUnauthorized, CodeResetTokenMissing, "Reset token is missing", nil)
		return
	}
	if err := h.deps.Credentials.ResetPasswordWithToken(r.Context(), req.NewPassword, req.ResetToken); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "auth.password_reset")
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.deps.Credentials.ChangePassword(r.Context(), id.ID, req.OldPassword, req.NewPassword); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "auth.password_changed", "user_id", id.ID)
	response.JSON(w, r, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

func (h *AuthHandler) landingURL(verified bool) string {
	if verified {
		return h.deps.FrontendURL + "/"
	}
	return h.deps.FrontendURL + "/verify"
}
