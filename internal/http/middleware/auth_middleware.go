package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/http/response"
	"github.com/aidashboard/dashboard-auth/internal/observability"
	"github.com/aidashboard/dashboard-auth/internal/security"
	"github.com/aidashboard/dashboard-auth/internal/service"
)

type identityKey struct{}

type TokenRedeemer interface {
	RedeemAccessToken(ctx context.Context, token string) (*domain.User, error)
	RedeemRefreshToken(ctx context.Context, token string) (*service.RedeemResult, error)
}

// AuthGate authenticates the request with the bearer access token, or
// failing that with the refresh cookie. A refresh redemption rotates the
// session and the new pair is written to the response before the handler
// runs.
func AuthGate(tokens TokenRedeemer, cookies *security.CookieManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, source, err := authenticate(w, r, tokens, cookies)
			if err != nil {
				observability.RecordAccessTokenValidation(r.Context(), "invalid", source)
				rejectUnauthorized(w, r, err)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", source)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user.Identity())))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, tokens TokenRedeemer, cookies *security.CookieManager) (*domain.User, string, error) {
	if bearer := security.BearerToken(r); bearer != "" {
		user, err := tokens.RedeemAccessToken(r.Context(), bearer)
		return user, "bearer", err
	}
	refresh := security.RefreshFromRequest(r)
	if refresh == "" {
		return nil, "none", apperror.Unauthorized(response.CodeUnauthorized, "Authentication required")
	}
	res, err := tokens.RedeemRefreshToken(r.Context(), refresh)
	if err != nil {
		return nil, "cookie", err
	}
	cookies.IssueTokens(w, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	return res.User, "cookie", nil
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperror.As(err); ok && appErr.Kind == apperror.KindUnauthorized {
		response.Error(w, r, http.StatusUnauthorized, appErr.Code, appErr.Message, nil)
		return
	}
	if _, ok := apperror.As(err); !ok {
		slog.ErrorContext(r.Context(), "auth gate failed", "error", err)
	}
	response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication failed", nil)
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}
