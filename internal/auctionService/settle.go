package auction

import (
	"context"
	"errors"
	"fmt"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
	"secured-auction/internal/repository"
)

// ExpiredAuctionIDs lists ACTIVE auctions whose end time has passed, oldest first
func (s *AuctionService) ExpiredAuctionIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.repo.View(ctx, func(tx repository.Tx) error {
		expired, err := tx.ExpiredAuctions(s.unixNow())
		if err != nil {
			return err
		}
		ids = make([]int64, 0, len(expired))
		for _, a := range expired {
			ids = append(ids, a.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return ids, nil
}

// SettleAuction closes an expired auction and pays the seller from the winning bidder.
// The status flip, the transfer and the settlement record commit together or not at all.
// Settling an auction twice fails with ErrAuctionAlreadySettled and changes nothing.
func (s *AuctionService) SettleAuction(ctx context.Context, auctionID int64) (model.Settlement, error) {
	var settlement model.Settlement
	err := s.repo.Update(ctx, func(tx repository.Tx) error {
		auction, err := tx.AuctionByID(auctionID)
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionActive {
			return auctionerrors.ErrAuctionAlreadySettled
		}
		now := s.unixNow()
		if auction.EndAt > now {
			return auctionerrors.ErrAuctionOpen
		}

		auction.Status = model.AuctionInactive
		if err := tx.SaveAuction(&auction); err != nil {
			return err
		}

		settlement = model.Settlement{
			AuctionID: auction.ID,
			SellerID:  auction.SellerID,
			SettledAt: now,
		}

		winning, err := tx.WinningBid(auction.ID)
		switch {
		case errors.Is(err, auctionerrors.ErrNoBids):
			settlement.Outcome = model.SettlementNoBids
			return tx.CreateSettlement(&settlement)
		case err != nil:
			return err
		}

		settlement.BidID = &winning.ID
		settlement.WinnerID = &winning.UserID
		settlement.Amount = winning.Price

		outcome, err := transfer(tx, winning.UserID, auction.SellerID, winning)
		if err != nil {
			return err
		}
		settlement.Outcome = outcome
		return tx.CreateSettlement(&settlement)
	})
	if err != nil {
		return model.Settlement{}, fmt.Errorf("service: failed to settle auction %d: %w", auctionID, err)
	}
	return settlement, nil
}

// transfer moves the winning price from winner to seller. Both rows are locked in id
// order. A winner who can no longer cover the price defaults and nothing moves.
func transfer(tx repository.Tx, winnerID, sellerID int64, winning model.Bid) (model.SettlementOutcome, error) {
	if winnerID == sellerID {
		if _, err := tx.UserByID(winnerID); err != nil {
			return "", err
		}
		return model.SettlementPaid, nil
	}

	first, second := winnerID, sellerID
	if second < first {
		first, second = second, first
	}
	users := make(map[int64]model.User, 2)
	for _, id := range []int64{first, second} {
		u, err := tx.UserByID(id)
		if err != nil {
			return "", err
		}
		users[id] = u
	}

	winner, seller := users[winnerID], users[sellerID]
	if winner.Balance.LessThan(winning.Price) {
		return model.SettlementDefaulted, nil
	}

	winner.Balance = winner.Balance.Sub(winning.Price)
	seller.Balance = seller.Balance.Add(winning.Price)
	if err := tx.SaveUser(&winner); err != nil {
		return "", err
	}
	if err := tx.SaveUser(&seller); err != nil {
		return "", err
	}
	return model.SettlementPaid, nil
}
