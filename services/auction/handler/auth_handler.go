package handler

import (
	"context"
	"net/http"

	"secured-auction/internal/auth"
	model "secured-auction/internal/models"
	"secured-auction/internal/security"
	"secured-auction/services/auction/helpers"
	"secured-auction/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=auth_handler.go -destination=mock_account_service.go -package=handler

type AccountServiceInterface interface {
	Register(ctx context.Context, creds auth.Credentials) (model.User, error)
	Login(ctx context.Context, creds auth.Credentials) (auth.Session, error)
	ServicePublicKey() security.PublicKey
}

type AuthHandler struct {
	accounts AccountServiceInterface
	signer   helpers.Signer
}

func NewAuthHandler(accounts AccountServiceInterface, signer helpers.Signer) *AuthHandler {
	return &AuthHandler{accounts: accounts, signer: signer}
}

// RegisterHandler handles POST /auth/register
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), auth.Credentials(req))
	if err != nil {
		helpers.WriteError(c, err)
		utils.Warn("RegisterHandler: registration failed", map[string]any{"error": err.Error()})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusCreated, helpers.StatusResponse{Status: "CREAT", Message: "OK"})
	helpers.LogSuccess("RegisterHandler", "user registered", map[string]any{"user_id": user.ID})
}

// LoginHandler handles POST /auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), auth.Credentials(req))
	if err != nil {
		helpers.WriteError(c, err)
		utils.Warn("LoginHandler: login failed", map[string]any{"error": err.Error()})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.LoginResponse{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		Status:      "AUTHN",
	})
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt.Unix(),
	})
}

// PublicKeyHandler handles GET /auth/public-key
func (h *AuthHandler) PublicKeyHandler(c *gin.Context) {
	pub := h.accounts.ServicePublicKey()
	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.PublicKeyResponse{
		E: pub.E.String(),
		N: pub.N.String(),
	})
}
