package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
	"secured-auction/internal/repository"

	"github.com/shopspring/decimal"
)

// DefaultCancelWindow is how long after placement a bid may still be withdrawn
const DefaultCancelWindow = 10 * time.Second

// AuctionService owns the auction ledger: listings, bids and balances.
// Every mutation runs in one repository transaction that holds the rows it reads.
type AuctionService struct {
	repo         repository.AuctionDB
	now          func() time.Time
	cancelWindow time.Duration
}

type Option func(*AuctionService)

// WithClock overrides the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *AuctionService) { s.now = now }
}

func WithCancelWindow(d time.Duration) Option {
	return func(s *AuctionService) { s.cancelWindow = d }
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, opts ...Option) *AuctionService {
	s := &AuctionService{
		repo:         repo,
		now:          time.Now,
		cancelWindow: DefaultCancelWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuctionService) unixNow() int64 {
	return s.now().Unix()
}

// CreateAuction validates and lists a new ACTIVE auction for sellerID
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID int64, in NewAuction) (model.Auction, error) {
	now := s.unixNow()
	if err := in.validate(now); err != nil {
		return model.Auction{}, err
	}

	auction := model.Auction{
		SellerID:    sellerID,
		Title:       in.Title,
		Description: in.Description,
		BasePrice:   in.BasePrice,
		CreatedAt:   now,
		EndAt:       in.EndAt,
		Status:      model.AuctionActive,
	}
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		return tx.CreateAuction(&auction)
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction for seller %d: %w", sellerID, err)
	}
	return auction, nil
}

// GetAuction returns a single auction
func (s *AuctionService) GetAuction(ctx context.Context, auctionID int64) (model.Auction, error) {
	var auction model.Auction
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		var err error
		auction, err = tx.AuctionByID(auctionID)
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: %w", err)
	}
	return auction, nil
}

// ListAuctions returns every auction ordered by id
func (s *AuctionService) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	var auctions []model.Auction
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		var err error
		auctions, err = tx.ListAuctions()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return auctions, nil
}

// DeleteAuction removes an auction and its bids. Only the seller may do this.
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID, requesterID int64) error {
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		auction, err := tx.AuctionByID(auctionID)
		if err != nil {
			return err
		}
		if auction.SellerID != requesterID {
			return auctionerrors.ErrNotSeller
		}
		return tx.DeleteAuction(auctionID)
	})
	if err != nil {
		return fmt.Errorf("service: failed to delete auction %d: %w", auctionID, err)
	}
	return nil
}

// PlaceBid records a bid after checking the auction is open and the bidder can cover the price.
// Funds are not reserved.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, userID int64, price decimal.Decimal) (model.Bid, error) {
	if !price.IsPositive() {
		return model.Bid{}, auctionerrors.ErrInvalidBidPrice
	}

	var bid model.Bid
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		auction, err := tx.AuctionByID(auctionID)
		if err != nil {
			return err
		}
		now := s.unixNow()
		if auction.Status != model.AuctionActive || auction.EndAt <= now {
			return auctionerrors.ErrAuctionFinished
		}

		bidder, err := tx.UserByID(userID)
		if err != nil {
			return err
		}
		if bidder.Balance.LessThan(price) {
			return auctionerrors.ErrInsufficientBalance
		}

		bid = model.Bid{
			AuctionID: auctionID,
			UserID:    userID,
			CreatedAt: now,
			Price:     price,
		}
		return tx.CreateBid(&bid)
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to place bid on auction %d by user %d: %w", auctionID, userID, err)
	}
	return bid, nil
}

// CancelBid withdraws a bid. The requester must own it, it must be younger than the
// cancel window and it must still be the newest bid on an open auction.
func (s *AuctionService) CancelBid(ctx context.Context, bidID, requesterID int64) error {
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		bid, err := tx.BidByID(bidID)
		if err != nil {
			return err
		}
		if bid.UserID != requesterID {
			return auctionerrors.ErrNotOwner
		}
		if time.Duration(s.unixNow()-bid.CreatedAt)*time.Second > s.cancelWindow {
			return auctionerrors.ErrCancelWindowExpired
		}

		// the auction row lock serializes this check against concurrent bids
		auction, err := tx.AuctionByID(bid.AuctionID)
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionActive {
			return auctionerrors.ErrAuctionFinished
		}
		latest, err := tx.LatestBid(bid.AuctionID)
		if err != nil {
			return err
		}
		if latest.ID != bid.ID {
			return auctionerrors.ErrNotLatestBid
		}
		return tx.DeleteBid(bidID)
	})
	if err != nil {
		return fmt.Errorf("service: failed to cancel bid %d: %w", bidID, err)
	}
	return nil
}

// HighestBid returns the best price offered on an auction, or nil when nobody has bid
func (s *AuctionService) HighestBid(ctx context.Context, auctionID int64) (*decimal.Decimal, error) {
	var highest *decimal.Decimal
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.AuctionByID(auctionID); err != nil {
			return err
		}
		winner, err := tx.WinningBid(auctionID)
		if errors.Is(err, auctionerrors.ErrNoBids) {
			return nil
		}
		if err != nil {
			return err
		}
		highest = &winner.Price
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get highest bid for auction %d: %w", auctionID, err)
	}
	return highest, nil
}

// BidsForAuction returns the bids on an auction, newest first
func (s *AuctionService) BidsForAuction(ctx context.Context, auctionID int64) ([]model.Bid, error) {
	var bids []model.Bid
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.AuctionByID(auctionID); err != nil {
			return err
		}
		var err error
		bids, err = tx.BidsByAuction(auctionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %d: %w", auctionID, err)
	}
	return bids, nil
}

// AddBalance credits userID and returns the new balance
func (s *AuctionService) AddBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, auctionerrors.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		user, err := tx.UserByID(userID)
		if err != nil {
			return err
		}
		user.Balance = user.Balance.Add(amount)
		balance = user.Balance
		return tx.SaveUser(&user)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: failed to credit user %d: %w", userID, err)
	}
	return balance, nil
}

// GetBalance returns the current balance of userID
func (s *AuctionService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		user, err := tx.UserByID(userID)
		if err != nil {
			return err
		}
		balance = user.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("service: %w", err)
	}
	return balance, nil
}
