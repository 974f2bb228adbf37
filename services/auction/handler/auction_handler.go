package handler

import (
	"context"
	"net/http"

	auction "secured-auction/internal/auctionService"
	model "secured-auction/internal/models"
	"secured-auction/services/auction/helpers"
	"secured-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=auction_handler.go -destination=mock_auction_service.go -package=handler

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, sellerID int64, in auction.NewAuction) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID int64) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID, requesterID int64) error
	PlaceBid(ctx context.Context, auctionID, userID int64, price decimal.Decimal) (model.Bid, error)
	CancelBid(ctx context.Context, bidID, requesterID int64) error
	HighestBid(ctx context.Context, auctionID int64) (*decimal.Decimal, error)
	BidsForAuction(ctx context.Context, auctionID int64) ([]model.Bid, error)
	AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
	signer  helpers.Signer
}

func NewAuctionHandler(service AuctionServiceInterface, signer helpers.Signer) *AuctionHandler {
	return &AuctionHandler{service: service, signer: signer}
}

// fail writes the error response and logs it with the handler's identifiers
func fail(c *gin.Context, handlerName, message string, err error, fields map[string]any) {
	helpers.WriteError(c, err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	utils.Warn(handlerName+": "+message, fields)
}

// CreateAuctionHandler handles POST /create-auction
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var msg helpers.CreateAuctionMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	userID := helpers.UserID(c)
	created, err := h.service.CreateAuction(c.Request.Context(), userID, auction.NewAuction{
		Title:       msg.Title,
		Description: msg.Description,
		BasePrice:   *msg.Price,
		EndAt:       msg.Timestamp,
	})
	if err != nil {
		fail(c, "CreateAuctionHandler", "failed to create auction", err, map[string]any{"user_id": userID})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusCreated, created)
	helpers.LogSuccess("CreateAuctionHandler", "auction created", map[string]any{
		"auction_id": created.ID,
		"user_id":    userID,
		"end_at":     created.EndAt,
	})
}

// ListAuctionsHandler handles POST /list-auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListAuctions(c.Request.Context())
	if err != nil {
		fail(c, "ListAuctionsHandler", "failed to list auctions", err, nil)
		return
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, auctions)
}

// GetAuctionHandler handles POST /get-auction
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	var msg helpers.AuctionIDMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "GetAuctionHandler", err)
		return
	}

	found, err := h.service.GetAuction(c.Request.Context(), msg.AuctionID)
	if err != nil {
		fail(c, "GetAuctionHandler", "failed to get auction", err, map[string]any{"auction_id": msg.AuctionID})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, found)
}

// DeleteAuctionHandler handles POST /delete-auction
func (h *AuctionHandler) DeleteAuctionHandler(c *gin.Context) {
	var msg helpers.AuctionIDMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "DeleteAuctionHandler", err)
		return
	}

	userID := helpers.UserID(c)
	if err := h.service.DeleteAuction(c.Request.Context(), msg.AuctionID, userID); err != nil {
		fail(c, "DeleteAuctionHandler", "failed to delete auction", err, map[string]any{
			"auction_id": msg.AuctionID,
			"user_id":    userID,
		})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.DeleteAuctionResponse{
		Status:    "OK",
		Deleted:   true,
		AuctionID: msg.AuctionID,
	})
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted", map[string]any{
		"auction_id": msg.AuctionID,
		"user_id":    userID,
	})
}

// PlaceBidHandler handles POST /bid
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var msg helpers.BidMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	userID := helpers.UserID(c)
	bid, err := h.service.PlaceBid(c.Request.Context(), msg.AuctionID, userID, *msg.Price)
	if err != nil {
		fail(c, "PlaceBidHandler", "failed to place bid", err, map[string]any{
			"auction_id": msg.AuctionID,
			"user_id":    userID,
		})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusCreated, bid)
	helpers.LogSuccess("PlaceBidHandler", "bid placed", map[string]any{
		"bid_id":     bid.ID,
		"auction_id": bid.AuctionID,
		"user_id":    userID,
		"price":      bid.Price.String(),
	})
}

// CancelBidHandler handles POST /cancel-bid
func (h *AuctionHandler) CancelBidHandler(c *gin.Context) {
	var msg helpers.CancelBidMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "CancelBidHandler", err)
		return
	}

	userID := helpers.UserID(c)
	if err := h.service.CancelBid(c.Request.Context(), msg.BidID, userID); err != nil {
		fail(c, "CancelBidHandler", "failed to cancel bid", err, map[string]any{
			"bid_id":  msg.BidID,
			"user_id": userID,
		})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.StatusResponse{Status: "CNBID", Message: "OK"})
	helpers.LogSuccess("CancelBidHandler", "bid cancelled", map[string]any{"bid_id": msg.BidID, "user_id": userID})
}

// UpdatePriceHandler handles POST /update-price
func (h *AuctionHandler) UpdatePriceHandler(c *gin.Context) {
	var msg helpers.AuctionIDMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "UpdatePriceHandler", err)
		return
	}

	highest, err := h.service.HighestBid(c.Request.Context(), msg.AuctionID)
	if err != nil {
		fail(c, "UpdatePriceHandler", "failed to get highest bid", err, map[string]any{"auction_id": msg.AuctionID})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.PriceResponse{
		AuctionID:    msg.AuctionID,
		UpdatedPrice: highest,
	})
}

// AuctionBidsHandler handles POST /auction-bids
func (h *AuctionHandler) AuctionBidsHandler(c *gin.Context) {
	var msg helpers.AuctionIDMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "AuctionBidsHandler", err)
		return
	}

	bids, err := h.service.BidsForAuction(c.Request.Context(), msg.AuctionID)
	if err != nil {
		fail(c, "AuctionBidsHandler", "failed to list bids", err, map[string]any{"auction_id": msg.AuctionID})
		return
	}
	if bids == nil {
		bids = []model.Bid{}
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, bids)
}

// AddBalanceHandler handles POST /balance
func (h *AuctionHandler) AddBalanceHandler(c *gin.Context) {
	var msg helpers.BalanceMessage
	if err := helpers.BindMessage(c, &msg); err != nil {
		helpers.HandleBindError(c, "AddBalanceHandler", err)
		return
	}

	userID := helpers.UserID(c)
	balance, err := h.service.AddBalance(c.Request.Context(), userID, *msg.Amount)
	if err != nil {
		fail(c, "AddBalanceHandler", "failed to credit balance", err, map[string]any{"user_id": userID})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.BalanceResponse{Status: "OK", Balance: balance})
	helpers.LogSuccess("AddBalanceHandler", "balance credited", map[string]any{
		"user_id": userID,
		"amount":  msg.Amount.String(),
	})
}

// GetBalanceHandler handles GET /get-balance
func (h *AuctionHandler) GetBalanceHandler(c *gin.Context) {
	userID := helpers.UserID(c)
	balance, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		fail(c, "GetBalanceHandler", "failed to get balance", err, map[string]any{"user_id": userID})
		return
	}

	helpers.WriteSigned(c, h.signer, http.StatusOK, helpers.BalanceResponse{Balance: balance})
}
