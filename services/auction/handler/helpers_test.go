package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"secured-auction/internal/security"
	"secured-auction/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var (
	signerOnce sync.Once
	signerKeys *security.KeyStore
	signerErr  error
)

func testSigner(t *testing.T) *security.KeyStore {
	t.Helper()
	signerOnce.Do(func() {
		signerKeys, signerErr = security.GenerateKeyStore(1024)
	})
	require.NoError(t, signerErr)
	return signerKeys
}

// fakeVerified stands in for the bearer and signature middleware: the raw
// request body becomes the verified message of userID.
func fakeVerified(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Set(helpers.UserIDKey, userID)
		c.Set(helpers.MessageKey, string(body))
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch v := body.(type) {
	case nil:
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// signedBody checks the response envelope against the service key and decodes its message
func signedBody(t *testing.T, w *httptest.ResponseRecorder, keys *security.KeyStore, out any) {
	t.Helper()
	var env security.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Valid(keys.Public()), "response signature must verify")
	require.NoError(t, json.Unmarshal([]byte(env.Message), out))
}

type errorBody struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ERROR", body.Status)
	return body
}
