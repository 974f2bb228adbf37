package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
	"secured-auction/internal/repository"
	"secured-auction/internal/security"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 25
	minPasswordLen = 6
	maxPasswordLen = 32
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
)

// Credentials is a register/login request as received: username and password are
// decimal ciphertexts for the service key, the public key is in clear.
type Credentials struct {
	Username   string
	Password   string
	PublicKeyE string
	PublicKeyN string
}

// Session is the outcome of a successful login
type Session struct {
	UserID      int64
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// AccountService handles registration, login and identity lookups
type AccountService struct {
	repo       repository.AuctionDB
	keys       *security.KeyStore
	tokens     *TokenIssuer
	now        func() time.Time
	bcryptCost int
}

type AccountOption func(*AccountService)

func WithAccountClock(now func() time.Time) AccountOption {
	return func(s *AccountService) { s.now = now }
}

// WithBcryptCost lowers the hashing cost, for tests
func WithBcryptCost(cost int) AccountOption {
	return func(s *AccountService) { s.bcryptCost = cost }
}

func NewAccountService(repo repository.AuctionDB, keys *security.KeyStore, tokens *TokenIssuer, opts ...AccountOption) *AccountService {
	s := &AccountService{
		repo:       repo,
		keys:       keys,
		tokens:     tokens,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServicePublicKey returns the key clients encrypt credentials with and verify responses against
func (s *AccountService) ServicePublicKey() security.PublicKey {
	return s.keys.Public()
}

// Register creates a new identity with a zero balance
func (s *AccountService) Register(ctx context.Context, creds Credentials) (model.User, error) {
	username, password, err := s.decryptCredentials(creds)
	if err != nil {
		return model.User{}, err
	}
	if err := validateUsername(username); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.User{}, err
	}
	pub, err := security.ParsePublicKey(creds.PublicKeyE, creds.PublicKeyN)
	if err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("service: hash password: %w", err)
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		Balance:      decimal.Zero,
		PublicKeyE:   pub.E.String(),
		PublicKeyN:   pub.N.String(),
		CreatedAt:    s.now().Unix(),
	}
	err = s.repo.Update(ctx, func(tx repository.Tx) error {
		_, err := tx.UserByUsername(username)
		switch {
		case err == nil:
			return auctionerrors.ErrUsernameTaken
		case !errors.Is(err, auctionerrors.ErrUserNotFound):
			return err
		}
		return tx.CreateUser(&user)
	})
	if err != nil {
		return model.User{}, fmt.Errorf("service: register %q: %w", username, err)
	}
	return user, nil
}

// Login checks the password, refreshes the registered public key when one is supplied,
// and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, creds Credentials) (Session, error) {
	username, password, err := s.decryptCredentials(creds)
	if err != nil {
		return Session{}, err
	}

	var newKey *security.PublicKey
	if creds.PublicKeyE != "" || creds.PublicKeyN != "" {
		pub, err := security.ParsePublicKey(creds.PublicKeyE, creds.PublicKeyN)
		if err != nil {
			return Session{}, err
		}
		newKey = &pub
	}

	var user model.User
	err = s.repo.View(ctx, func(tx repository.Tx) error {
		user, err = tx.UserByUsername(username)
		return err
	})
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return Session{}, auctionerrors.ErrLoginFailed
	}
	if err != nil {
		return Session{}, fmt.Errorf("service: login %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, auctionerrors.ErrLoginFailed
	}

	if newKey != nil {
		err = s.repo.Update(ctx, func(tx repository.Tx) error {
			current, err := tx.UserByID(user.ID)
			if err != nil {
				return err
			}
			current.PublicKeyE = newKey.E.String()
			current.PublicKeyN = newKey.N.String()
			return tx.SaveUser(&current)
		})
		if err != nil {
			return Session{}, fmt.Errorf("service: refresh public key for user %d: %w", user.ID, err)
		}
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("service: %w", err)
	}
	return Session{UserID: user.ID, AccessToken: token, TokenType: TokenType, ExpiresAt: expiresAt}, nil
}

// UserExists reports whether an identity with this id is registered
func (s *AccountService) UserExists(ctx context.Context, userID int64) (bool, error) {
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		_, err := tx.UserByID(userID)
		return err
	})
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("service: lookup user %d: %w", userID, err)
	}
	return true, nil
}

// UserPublicKey returns the key registered by userID
func (s *AccountService) UserPublicKey(ctx context.Context, userID int64) (security.PublicKey, error) {
	var user model.User
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.UserByID(userID)
		return err
	})
	if err != nil {
		return security.PublicKey{}, fmt.Errorf("service: public key of user %d: %w", userID, err)
	}
	pub, err := security.ParsePublicKey(user.PublicKeyE, user.PublicKeyN)
	if err != nil {
		return security.PublicKey{}, fmt.Errorf("service: stored key of user %d: %w", userID, err)
	}
	return pub, nil
}

func (s *AccountService) decryptCredentials(creds Credentials) (string, string, error) {
	priv := s.keys.Private()
	username, err := security.DecryptString(creds.Username, priv)
	if err != nil {
		return "", "", fmt.Errorf("service: username: %w", err)
	}
	password, err := security.DecryptString(creds.Password, priv)
	if err != nil {
		return "", "", fmt.Errorf("service: password: %w", err)
	}
	return username, password, nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return auctionerrors.ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen || len(password) > maxPasswordBytes {
		return auctionerrors.ErrInvalidPassword
	}
	return nil
}
