package integrationtests

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"secured-auction/client"
	auction "secured-auction/internal/auctionService"
	"secured-auction/internal/auth"
	"secured-auction/internal/repository"
	"secured-auction/internal/security"
	"secured-auction/internal/server"
	"secured-auction/internal/settlement"
	"secured-auction/services/auction/handler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testKeyBits = 1024
	tokenTTL    = time.Hour
)

// clock is shared by every component so tests can move time forward
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv is a running service plus the pieces tests poke at directly
type testEnv struct {
	server  *httptest.Server
	clock   *clock
	keys    *security.KeyStore
	daemon  *settlement.Daemon
	service *auction.AuctionService
}

var (
	serverKeysOnce sync.Once
	serverKeys     *security.KeyStore
	serverKeysErr  error
)

func generateKeys(t *testing.T) *security.KeyStore {
	t.Helper()
	keys, err := security.GenerateKeyStore(testKeyBits)
	require.NoError(t, err)
	return keys
}

// SetupTestServer wires the full stack over an in-memory repository
func SetupTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverKeysOnce.Do(func() {
		serverKeys, serverKeysErr = security.GenerateKeyStore(testKeyBits)
	})
	require.NoError(t, serverKeysErr)

	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	repo := repository.NewMemoryRepo()

	tokens := auth.NewTokenIssuer("integration-secret", tokenTTL, auth.WithTokenClock(clk.Now))
	accounts := auth.NewAccountService(repo, serverKeys, tokens,
		auth.WithAccountClock(clk.Now),
		auth.WithBcryptCost(bcrypt.MinCost),
	)
	authenticator := auth.NewRequestAuthenticator(tokens, accounts)
	service := auction.NewAuctionService(repo, auction.WithClock(clk.Now))

	router := server.SetupRouter(
		handler.NewAuthHandler(accounts, serverKeys),
		handler.NewAuctionHandler(service, serverKeys),
		authenticator,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		clock:   clk,
		keys:    serverKeys,
		daemon:  settlement.NewDaemon(service, time.Minute),
		service: service,
	}
}

// NewClient returns a client with a fresh keypair that fetches the service key itself
func (e *testEnv) NewClient(t *testing.T) *client.Client {
	t.Helper()
	return client.New(e.server.URL, generateKeys(t))
}

// SignedInClient registers and logs in a new user
func (e *testEnv) SignedInClient(t *testing.T, username, password string) *client.Client {
	t.Helper()
	ctx := context.Background()
	c := e.NewClient(t)
	require.NoError(t, c.Register(ctx, username, password))
	require.NoError(t, c.Login(ctx, username, password))
	require.NotEmpty(t, c.Token())
	return c
}

// requireAPIError asserts err is a service error with the given http status and code
func requireAPIError(t *testing.T, err error, httpStatus, code int) {
	t.Helper()
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, httpStatus, apiErr.HTTPStatus)
	require.Equal(t, code, apiErr.Code)
	require.Equal(t, "ERROR", apiErr.Status)
}
