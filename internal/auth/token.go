// Package auth issues and validates the bearer tokens that guard the
// AssetScout API.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, issuer or
// expiry validation.
var ErrInvalidToken = errors.New("invalid or expired token")

// DefaultTTL is the lifetime of issued tokens when none is given.
const DefaultTTL = 24 * time.Hour

// Claims holds the JWT payload for API tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 API tokens.
type TokenService struct {
	secret  []byte
	issuer  string
	nowFunc func() time.Time
}

// NewTokenService creates a TokenService with the given signing secret.
func NewTokenService(secret []byte, issuer string) *TokenService {
	if issuer == "" {
		issuer = "assetscout"
	}
	return &TokenService{secret: secret, issuer: issuer, nowFunc: time.Now}
}

// Issue returns a signed token for subject valid for ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware returns the HTTP middleware enforcing tokens from s.
func (s *TokenService) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(s)
}
