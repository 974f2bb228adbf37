package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"secured-auction/internal/auctionerrors"
	"secured-auction/internal/security"
	"secured-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Context keys set by the server middleware
const (
	UserIDKey  = "user_id"
	MessageKey = "signed_message"
)

// Signer seals response payloads with the service key
type Signer interface {
	Seal(v any) (security.Envelope, error)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	WriteError(c, auctionerrors.ErrMalformedMessage)
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status, wire code and message.
// Errors outside the domain taxonomy never leak their text.
func MapErrorToHTTP(err error) (int, int, string) {
	var de *auctionerrors.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, 0, "internal server error"
	}
	switch de.Kind {
	case auctionerrors.KindIdentity, auctionerrors.KindIntegrity:
		return http.StatusUnauthorized, de.Code, de.Message
	case auctionerrors.KindValidation, auctionerrors.KindState, auctionerrors.KindInsufficientFunds:
		return http.StatusBadRequest, de.Code, de.Message
	case auctionerrors.KindOwnership:
		return http.StatusForbidden, de.Code, de.Message
	case auctionerrors.KindNotFound:
		return http.StatusNotFound, de.Code, de.Message
	case auctionerrors.KindConflict:
		return http.StatusConflict, de.Code, de.Message
	default:
		return http.StatusInternalServerError, de.Code, de.Message
	}
}

// WriteError sends the error body for err
func WriteError(c *gin.Context, err error) {
	status, code, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, code, message)
}

// WriteSigned canonicalizes v, signs it and sends the envelope
func WriteSigned(c *gin.Context, signer Signer, status int, v any) {
	env, err := signer.Seal(v)
	if err != nil {
		WriteError(c, fmt.Errorf("seal response: %w", err))
		utils.Error("failed to sign response", map[string]any{"path": c.FullPath(), "error": err.Error()})
		return
	}
	utils.JSONSigned(c, status, env.Message, env.Signature)
}

// UserID returns the authenticated caller set by the bearer middleware
func UserID(c *gin.Context) int64 {
	return c.GetInt64(UserIDKey)
}

// BindMessage decodes and validates the verified envelope message into obj
func BindMessage(c *gin.Context, obj any) error {
	msg := c.GetString(MessageKey)
	if err := binding.JSON.BindBody([]byte(msg), obj); err != nil {
		return fmt.Errorf("%w: %v", auctionerrors.ErrMalformedMessage, err)
	}
	return nil
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
