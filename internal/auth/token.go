package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and validates the bearer tokens protecting the
// serve-mode API. An empty secret disables authentication entirely.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Enabled reports whether a signing secret is configured.
func (tm *TokenManager) Enabled() bool {
	return len(tm.secret) > 0
}

// Claims describes the JWT payload for an API caller.
type Claims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a bearer token for the named caller.
func (tm *TokenManager) GenerateToken(caller string) (string, time.Time, error) {
	if !tm.Enabled() {
		return "", time.Time{}, errors.New("no auth secret configured")
	}
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
