package client

import (
	"context"
	"fmt"
	"net/http"

	model "secured-auction/internal/models"
	"secured-auction/internal/security"

	"github.com/shopspring/decimal"
)

type credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	PublicKeyE string `json:"public_key_e,omitempty"`
	PublicKeyN string `json:"public_key_n,omitempty"`
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) encryptCredentials(ctx context.Context, username, password string) (credentials, error) {
	pub, err := c.ServerKey(ctx)
	if err != nil {
		return credentials{}, err
	}
	encUser, err := security.Encrypt(username, pub)
	if err != nil {
		return credentials{}, fmt.Errorf("client: encrypt username: %w", err)
	}
	encPass, err := security.Encrypt(password, pub)
	if err != nil {
		return credentials{}, fmt.Errorf("client: encrypt password: %w", err)
	}
	own := c.keys.Public()
	return credentials{
		Username:   encUser.String(),
		Password:   encPass.String(),
		PublicKeyE: own.E.String(),
		PublicKeyN: own.N.String(),
	}, nil
}

// Register creates an identity bound to the client's public key
func (c *Client) Register(ctx context.Context, username, password string) error {
	creds, err := c.encryptCredentials(ctx, username, password)
	if err != nil {
		return err
	}
	var out statusMessage
	if err := c.call(ctx, http.MethodPost, "/auth/register", creds, false, &out); err != nil {
		return err
	}
	if out.Status != "CREAT" {
		return fmt.Errorf("client: unexpected register status %q", out.Status)
	}
	return nil
}

// Login authenticates, re-binds the client's current public key and stores the token
func (c *Client) Login(ctx context.Context, username, password string) error {
	creds, err := c.encryptCredentials(ctx, username, password)
	if err != nil {
		return err
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Status      string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/login", creds, false, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

// CreateAuction lists an item; endAt is unix seconds
func (c *Client) CreateAuction(ctx context.Context, title, description string, price decimal.Decimal, endAt int64) (model.Auction, error) {
	var out model.Auction
	err := c.callSigned(ctx, "/create-auction", map[string]any{
		"title":       title,
		"description": description,
		"price":       price,
		"timestamp":   endAt,
	}, &out)
	return out, err
}

// ListAuctions needs no token
func (c *Client) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	var out []model.Auction
	err := c.call(ctx, http.MethodPost, "/list-auctions", nil, false, &out)
	return out, err
}

func (c *Client) GetAuction(ctx context.Context, auctionID int64) (model.Auction, error) {
	var out model.Auction
	err := c.callSigned(ctx, "/get-auction", map[string]any{"auction_id": auctionID}, &out)
	return out, err
}

func (c *Client) DeleteAuction(ctx context.Context, auctionID int64) error {
	return c.callSigned(ctx, "/delete-auction", map[string]any{"auction_id": auctionID}, nil)
}

func (c *Client) PlaceBid(ctx context.Context, auctionID int64, price decimal.Decimal) (model.Bid, error) {
	var out model.Bid
	err := c.callSigned(ctx, "/bid", map[string]any{"auction_id": auctionID, "price": price}, &out)
	return out, err
}

func (c *Client) CancelBid(ctx context.Context, bidID int64) error {
	var out statusMessage
	if err := c.callSigned(ctx, "/cancel-bid", map[string]any{"bid_id": bidID}, &out); err != nil {
		return err
	}
	if out.Status != "CNBID" {
		return fmt.Errorf("client: unexpected cancel status %q", out.Status)
	}
	return nil
}

// HighestBid returns nil when the auction has no bids
func (c *Client) HighestBid(ctx context.Context, auctionID int64) (*decimal.Decimal, error) {
	var out struct {
		UpdatedPrice *decimal.Decimal `json:"updated_price"`
	}
	err := c.callSigned(ctx, "/update-price", map[string]any{"auction_id": auctionID}, &out)
	return out.UpdatedPrice, err
}

// AuctionBids returns the bids on an auction, newest first
func (c *Client) AuctionBids(ctx context.Context, auctionID int64) ([]model.Bid, error) {
	var out []model.Bid
	err := c.callSigned(ctx, "/auction-bids", map[string]any{"auction_id": auctionID}, &out)
	return out, err
}

// AddBalance credits the caller and returns the new balance
func (c *Client) AddBalance(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	err := c.callSigned(ctx, "/balance", map[string]any{"amount": amount}, &out)
	return out.Balance, err
}

func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	err := c.call(ctx, http.MethodGet, "/get-balance", nil, true, &out)
	return out.Balance, err
}
