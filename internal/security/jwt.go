package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects one of the three signing domains.
type TokenKind int

const (
	TokenAccess TokenKind = iota + 1
	TokenRefresh
	TokenReset
)

func (k TokenKind) String() string {
	switch k {
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	case TokenReset:
		return "reset"
	default:
		return "unknown"
	}
}

var ErrDeviceRequired = errors.New("refresh token requires a device fingerprint")

type Claims struct {
	TokenType string `json:"token_type"`
	Device    string `json:"device,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int64, bool) {
	if c == nil || c.Subject == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type TokenPolicy struct {
	Secret []byte
	TTL    time.Duration
}

type JWTManager struct {
	issuer   string
	audience string
	policies map[TokenKind]TokenPolicy
	now      func() time.Time
}

type JWTOptions struct {
	Issuer   string
	Audience string
	Access   TokenPolicy
	Refresh  TokenPolicy
	Reset    TokenPolicy
}

func NewJWTManager(opts JWTOptions) *JWTManager {
	return &JWTManager{
		issuer:   opts.Issuer,
		audience: opts.Audience,
		policies: map[TokenKind]TokenPolicy{
			TokenAccess:  opts.Access,
			TokenRefresh: opts.Refresh,
			TokenReset:   opts.Reset,
		},
		now: time.Now,
	}
}

func (m *JWTManager) TTL(kind TokenKind) time.Duration {
	return m.policies[kind].TTL
}

// Issue signs a token of the given kind. Refresh tokens embed the device.
func (m *JWTManager) Issue(kind TokenKind, userID int64, device string) (string, error) {
	policy, ok := m.policies[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %d", kind)
	}
	if kind == TokenRefresh && device == "" {
		return "", ErrDeviceRequired
	}
	now := m.now()
	claims := Claims{
		TokenType: kind.String(),
		Device:    device,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(policy.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(policy.Secret)
}

// Verify returns the claims of a valid token of the given kind. Bad
// signature, foreign domain, wrong type, expiry and garbage all yield false.
func (m *JWTManager) Verify(raw string, kind TokenKind) (*Claims, bool) {
	policy, ok := m.policies[kind]
	if !ok || raw == "" {
		return nil, false
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return policy.Secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, false
	}
	if claims.TokenType != kind.String() {
		return nil, false
	}
	if _, ok := claims.UserID(); !ok {
		return nil, false
	}
	if kind == TokenRefresh && claims.Device == "" {
		return nil, false
	}
	return claims, true
}
