package helpers

import (
	"github.com/shopspring/decimal"
)

// Request DTOs

// RegisterRequest carries ciphertexts (decimal strings) for username and password
type RegisterRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	PublicKeyE string `json:"public_key_e" binding:"required"`
	PublicKeyN string `json:"public_key_n" binding:"required"`
}

// LoginRequest is RegisterRequest with an optional key refresh
type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	PublicKeyE string `json:"public_key_e" binding:"required_with=PublicKeyN"`
	PublicKeyN string `json:"public_key_n" binding:"required_with=PublicKeyE"`
}

// Signed message DTOs, decoded from the envelope's message field

type CreateAuctionMessage struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Timestamp   int64            `json:"timestamp" binding:"required"`
}

type AuctionIDMessage struct {
	AuctionID int64 `json:"auction_id" binding:"required,gt=0"`
}

type BidMessage struct {
	AuctionID int64            `json:"auction_id" binding:"required,gt=0"`
	Price     *decimal.Decimal `json:"price" binding:"required"`
}

type CancelBidMessage struct {
	BidID int64 `json:"bid_id" binding:"required,gt=0"`
}

type BalanceMessage struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// Response payloads, canonicalized and signed

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Status      string `json:"status"`
}

type PublicKeyResponse struct {
	E string `json:"e"`
	N string `json:"n"`
}

type DeleteAuctionResponse struct {
	Status    string `json:"status"`
	Deleted   bool   `json:"deleted"`
	AuctionID int64  `json:"auction_id"`
}

type PriceResponse struct {
	AuctionID    int64            `json:"auction_id"`
	UpdatedPrice *decimal.Decimal `json:"updated_price"`
}

type BalanceResponse struct {
	Status  string          `json:"status,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}
