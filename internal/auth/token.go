package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"secured-auction/internal/auctionerrors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is reported to clients alongside every access token
const TokenType = "bearer"

// TokenIssuer mints and verifies HS256 bearer tokens bound to a user id
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the wall clock used for issuing and checking expiry
func WithTokenClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) { i.now = now }
}

func NewTokenIssuer(secret string, ttl time.Duration, opts ...TokenOption) *TokenIssuer {
	i := &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a token for userID that expires ttl from now
func (i *TokenIssuer) Issue(userID int64) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token for user %d: %w", userID, err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Resolve verifies the seal and expiry of token and returns the user id it carries.
// It does not check that the identity still exists.
func (i *TokenIssuer) Resolve(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, auctionerrors.ErrTokenExpired
	case err != nil:
		return 0, fmt.Errorf("%w: %v", auctionerrors.ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return 0, auctionerrors.ErrTokenNoSubject
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, auctionerrors.ErrTokenBadSubject
	}
	return userID, nil
}
