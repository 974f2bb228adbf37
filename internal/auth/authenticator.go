package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"secured-auction/internal/auctionerrors"
	"secured-auction/internal/security"
)

// IdentityStore is what request authentication needs to know about registered users
type IdentityStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	UserPublicKey(ctx context.Context, userID int64) (security.PublicKey, error)
}

// RequestAuthenticator performs the two checks every protected call goes through:
// the bearer token must resolve to a live identity, and the request envelope must
// carry a signature made with that identity's registered key.
type RequestAuthenticator struct {
	tokens *TokenIssuer
	users  IdentityStore
}

func NewRequestAuthenticator(tokens *TokenIssuer, users IdentityStore) *RequestAuthenticator {
	return &RequestAuthenticator{tokens: tokens, users: users}
}

// Authenticate resolves an Authorization header value to a user id
func (a *RequestAuthenticator) Authenticate(ctx context.Context, authorization string) (int64, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, auctionerrors.ErrNotAuthenticated
	}

	userID, err := a.tokens.Resolve(strings.TrimSpace(token))
	if err != nil {
		return 0, err
	}

	exists, err := a.users.UserExists(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("authenticate user %d: %w", userID, err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: identity %d no longer exists", auctionerrors.ErrTokenInvalid, userID)
	}
	return userID, nil
}

// VerifyRequest checks env against the registered public key of userID
func (a *RequestAuthenticator) VerifyRequest(ctx context.Context, userID int64, env security.Envelope) error {
	pub, err := a.users.UserPublicKey(ctx, userID)
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return fmt.Errorf("%w: identity %d no longer exists", auctionerrors.ErrTokenInvalid, userID)
	}
	if err != nil {
		return fmt.Errorf("verify request for user %d: %w", userID, err)
	}
	if !env.Valid(pub) {
		return auctionerrors.ErrSignatureInvalid
	}
	return nil
}
