package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

const (
	RefreshCookieName  = "refreshToken"
	OAuthStateCookie   = "oauth_state"
	AccessTokenHeader  = "x-access-token"
	oauthStateLifetime = 10 * time.Minute
	oauthStatePath     = "/api/v1/auth/google"
)

type CookieManager struct {
	secure     bool
	refreshTTL time.Duration
}

func NewCookieManager(secure bool, refreshTTL time.Duration) *CookieManager {
	return &CookieManager{secure: secure, refreshTTL: refreshTTL}
}

// SetRefresh writes the refresh token cookie. It is never readable by
// scripts and only travels on same-site requests.
func (c *CookieManager) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.refreshTTL.Seconds()),
		Expires:  time.Now().Add(c.refreshTTL),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c *CookieManager) ClearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// IssueTokens sets the access header and the refresh cookie.
func (c *CookieManager) IssueTokens(w http.ResponseWriter, access, refresh string) {
	w.Header().Set(AccessTokenHeader, access)
	c.SetRefresh(w, refresh)
}

func RefreshFromRequest(r *http.Request) string {
	ck, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// DeviceFingerprint is the raw User-Agent header.
func DeviceFingerprint(r *http.Request) (string, bool) {
	ua := strings.TrimSpace(r.UserAgent())
	return ua, ua != ""
}

// SetOAuthState stores the state value for the callback to compare.
func (c *CookieManager) SetOAuthState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    state,
		Path:     oauthStatePath,
		MaxAge:   int(oauthStateLifetime.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeOAuthState clears the state cookie and reports whether it matched.
func (c *CookieManager) ConsumeOAuthState(w http.ResponseWriter, r *http.Request, state string) bool {
	ck, err := r.Cookie(OAuthStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookie,
		Value:    "",
		Path:     oauthStatePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil || ck.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) == 1
}
