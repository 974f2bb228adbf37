package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"secured-auction/internal/auctionerrors"
	"secured-auction/internal/repository"
	"secured-auction/internal/security"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type accountFixture struct {
	service *AccountService
	issuer  *TokenIssuer
	server  *security.KeyStore
	client  *security.KeyStore
}

func newAccountFixture(t *testing.T) accountFixture {
	t.Helper()
	server, client := testKeys(t)
	issuer := NewTokenIssuer(testSecret, 30*time.Minute, WithTokenClock(fixedClock(epoch)))
	service := NewAccountService(repository.NewMemoryRepo(), server, issuer,
		WithAccountClock(fixedClock(epoch)),
		WithBcryptCost(bcrypt.MinCost),
	)
	return accountFixture{service: service, issuer: issuer, server: server, client: client}
}

func (f accountFixture) credentials(t *testing.T, username, password string) Credentials {
	t.Helper()
	pub := f.server.Public()
	encUser, err := security.Encrypt(username, pub)
	require.NoError(t, err)
	encPass, err := security.Encrypt(password, pub)
	require.NoError(t, err)
	clientPub := f.client.Public()
	return Credentials{
		Username:   encUser.String(),
		Password:   encPass.String(),
		PublicKeyE: clientPub.E.String(),
		PublicKeyN: clientPub.N.String(),
	}
}

// Tests Register
func TestAccountService_Register(t *testing.T) {
	t.Parallel()

	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, f.credentials(t, "alice", "secret1"))
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
	require.Equal(t, "alice", user.Username)
	require.True(t, user.Balance.IsZero())
	require.Equal(t, epoch.Unix(), user.CreatedAt)
	require.NotEqual(t, "secret1", user.PasswordHash)

	_, err = f.service.Register(ctx, f.credentials(t, "alice", "another1"))
	require.ErrorIs(t, err, auctionerrors.ErrUsernameTaken)

	exists, err := f.service.UserExists(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = f.service.UserExists(ctx, 99)
	require.NoError(t, err)
	require.False(t, exists)

	pub, err := f.service.UserPublicKey(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, pub.N.Cmp(f.client.Public().N))

	_, err = f.service.UserPublicKey(ctx, 99)
	require.ErrorIs(t, err, auctionerrors.ErrUserNotFound)
}

func TestAccountService_Register_Invalid(t *testing.T) {
	t.Parallel()

	f := newAccountFixture(t)

	tests := []struct {
		name          string
		creds         func(t *testing.T) Credentials
		expectedError error
	}{
		{
			name:          "username_too_short",
			creds:         func(t *testing.T) Credentials { return f.credentials(t, "al", "secret1") },
			expectedError: auctionerrors.ErrInvalidUsername,
		},
		{
			name:          "username_too_long",
			creds:         func(t *testing.T) Credentials { return f.credentials(t, strings.Repeat("a", 26), "secret1") },
			expectedError: auctionerrors.ErrInvalidUsername,
		},
		{
			name:          "password_too_short",
			creds:         func(t *testing.T) Credentials { return f.credentials(t, "bob", "12345") },
			expectedError: auctionerrors.ErrInvalidPassword,
		},
		{
			name:          "password_too_long",
			creds:         func(t *testing.T) Credentials { return f.credentials(t, "bob", strings.Repeat("p", 33)) },
			expectedError: auctionerrors.ErrInvalidPassword,
		},
		{
			name: "password_over_hash_limit",
			creds: func(t *testing.T) Credentials {
				// 30 runes, 90 bytes
				return f.credentials(t, "bob", strings.Repeat("€", 30))
			},
			expectedError: auctionerrors.ErrInvalidPassword,
		},
		{
			name: "username_not_a_number",
			creds: func(t *testing.T) Credentials {
				c := f.credentials(t, "bob", "secret1")
				c.Username = "bob"
				return c
			},
			expectedError: auctionerrors.ErrDecode,
		},
		{
			name: "username_out_of_range",
			creds: func(t *testing.T) Credentials {
				c := f.credentials(t, "bob", "secret1")
				c.Username = f.server.Public().N.String()
				return c
			},
			expectedError: auctionerrors.ErrDecode,
		},
		{
			name: "public_key_missing",
			creds: func(t *testing.T) Credentials {
				c := f.credentials(t, "bob", "secret1")
				c.PublicKeyN = ""
				return c
			},
			expectedError: auctionerrors.ErrInvalidPublicKey,
		},
		{
			name: "public_key_too_small",
			creds: func(t *testing.T) Credentials {
				c := f.credentials(t, "bob", "secret1")
				c.PublicKeyN = "3233"
				return c
			},
			expectedError: auctionerrors.ErrInvalidPublicKey,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.service.Register(context.Background(), tt.creds(t))
			require.ErrorIs(t, err, tt.expectedError)
		})
	}
}

// Tests Login
func TestAccountService_Login(t *testing.T) {
	t.Parallel()

	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, f.credentials(t, "carol", "hunter22"))
	require.NoError(t, err)

	session, err := f.service.Login(ctx, f.credentials(t, "carol", "hunter22"))
	require.NoError(t, err)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, TokenType, session.TokenType)
	require.Equal(t, epoch.Add(30*time.Minute).Unix(), session.ExpiresAt.Unix())

	resolved, err := f.issuer.Resolve(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved)

	_, err = f.service.Login(ctx, f.credentials(t, "carol", "wrong-pass"))
	require.ErrorIs(t, err, auctionerrors.ErrLoginFailed)

	_, err = f.service.Login(ctx, f.credentials(t, "nobody", "hunter22"))
	require.ErrorIs(t, err, auctionerrors.ErrLoginFailed)
}

func TestAccountService_Login_RefreshesPublicKey(t *testing.T) {
	t.Parallel()

	f := newAccountFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, f.credentials(t, "dave", "hunter22"))
	require.NoError(t, err)

	// rotate to the server's key, any valid key works for the check
	creds := f.credentials(t, "dave", "hunter22")
	rotated := f.server.Public()
	creds.PublicKeyE = rotated.E.String()
	creds.PublicKeyN = rotated.N.String()

	_, err = f.service.Login(ctx, creds)
	require.NoError(t, err)

	pub, err := f.service.UserPublicKey(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, pub.N.Cmp(rotated.N))

	// login without a key keeps the registered one
	creds.PublicKeyE, creds.PublicKeyN = "", ""
	_, err = f.service.Login(ctx, creds)
	require.NoError(t, err)

	pub, err = f.service.UserPublicKey(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, pub.N.Cmp(rotated.N))

	// a malformed key is rejected before any lookup
	creds.PublicKeyE, creds.PublicKeyN = "3", "not-a-number"
	_, err = f.service.Login(ctx, creds)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidPublicKey)
}
