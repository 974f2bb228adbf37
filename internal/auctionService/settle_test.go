package auction

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
	"secured-auction/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func settlementOf(t *testing.T, repo repository.AuctionDB, auctionID int64) model.Settlement {
	t.Helper()
	var s model.Settlement
	err := repo.View(context.Background(), func(tx repository.Tx) error {
		var err error
		s, err = tx.SettlementByAuction(auctionID)
		return err
	})
	require.NoError(t, err)
	return s
}

func TestAuctionService_SettleAuction_Paid(t *testing.T) {
	t.Parallel()

	service, repo, clock := newTestService(t)
	ctx := context.Background()
	sellerID := createUser(t, repo, "seller", "100")
	winnerID := createUser(t, repo, "winner", "50")

	auction, err := service.CreateAuction(ctx, sellerID, validListing(120*time.Second))
	require.NoError(t, err)

	_, err = service.PlaceBid(ctx, auction.ID, winnerID, dec("30"))
	require.NoError(t, err)

	ids, err := service.ExpiredAuctionIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = service.SettleAuction(ctx, auction.ID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionOpen)

	clock.Advance(121 * time.Second)
	ids, err = service.ExpiredAuctionIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{auction.ID}, ids)

	settlement, err := service.SettleAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, model.SettlementPaid, settlement.Outcome)
	require.NotNil(t, settlement.WinnerID)
	require.Equal(t, winnerID, *settlement.WinnerID)
	require.True(t, dec("30").Equal(settlement.Amount))

	got, err := service.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionInactive, got.Status)
	require.True(t, dec("20").Equal(balanceOf(t, service, winnerID)))
	require.True(t, dec("130").Equal(balanceOf(t, service, sellerID)))

	// a second pass is a no-op
	_, err = service.SettleAuction(ctx, auction.ID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionAlreadySettled)
	ids, err = service.ExpiredAuctionIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.True(t, dec("20").Equal(balanceOf(t, service, winnerID)))
	require.True(t, dec("130").Equal(balanceOf(t, service, sellerID)))
	require.Equal(t, settlement.ID, settlementOf(t, repo, auction.ID).ID)
}

func TestAuctionService_SettleAuction_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		bids           []struct{ bidder, price string }
		drain          string // bidder whose balance is spent before settlement
		expectedWinner string
		expectedAmount string
		expected       model.SettlementOutcome
		balances       map[string]string
	}{
		{
			name:     "no_bids",
			expected: model.SettlementNoBids,
			balances: map[string]string{"seller": "0", "alice": "40", "bob": "40"},
		},
		{
			name:           "highest_price_wins",
			bids:           []struct{ bidder, price string }{{"alice", "10"}, {"bob", "25"}, {"alice", "20"}},
			expectedWinner: "bob",
			expectedAmount: "25",
			expected:       model.SettlementPaid,
			balances:       map[string]string{"seller": "25", "alice": "40", "bob": "15"},
		},
		{
			name:           "tie_goes_to_earliest",
			bids:           []struct{ bidder, price string }{{"alice", "15"}, {"bob", "15"}},
			expectedWinner: "alice",
			expectedAmount: "15",
			expected:       model.SettlementPaid,
			balances:       map[string]string{"seller": "15", "alice": "25", "bob": "40"},
		},
		{
			name:           "winner_cannot_cover",
			bids:           []struct{ bidder, price string }{{"alice", "30"}},
			drain:          "alice",
			expectedWinner: "alice",
			expectedAmount: "30",
			expected:       model.SettlementDefaulted,
			balances:       map[string]string{"seller": "0", "alice": "0", "bob": "40"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, repo, clock := newTestService(t)
			ctx := context.Background()
			users := map[string]int64{
				"seller": createUser(t, repo, "seller", "0"),
				"alice":  createUser(t, repo, "alice", "40"),
				"bob":    createUser(t, repo, "bob", "40"),
			}

			auction, err := service.CreateAuction(ctx, users["seller"], validListing(time.Hour))
			require.NoError(t, err)

			for _, b := range tt.bids {
				clock.Advance(time.Second)
				_, err := service.PlaceBid(ctx, auction.ID, users[b.bidder], dec(b.price))
				require.NoError(t, err)
			}
			if tt.drain != "" {
				err := repo.Update(ctx, func(tx repository.Tx) error {
					u, err := tx.UserByID(users[tt.drain])
					if err != nil {
						return err
					}
					u.Balance = dec("0")
					return tx.SaveUser(&u)
				})
				require.NoError(t, err)
			}

			clock.Advance(time.Hour)
			settlement, err := service.SettleAuction(ctx, auction.ID)
			require.NoError(t, err)
			require.Equal(t, tt.expected, settlement.Outcome)
			if tt.expectedWinner == "" {
				require.Nil(t, settlement.WinnerID)
				require.Nil(t, settlement.BidID)
			} else {
				require.NotNil(t, settlement.WinnerID)
				require.Equal(t, users[tt.expectedWinner], *settlement.WinnerID)
				require.True(t, dec(tt.expectedAmount).Equal(settlement.Amount))
			}

			for name, want := range tt.balances {
				got := balanceOf(t, service, users[name])
				require.True(t, dec(want).Equal(got), "%s: want %s got %s", name, want, got)
			}

			got, err := service.GetAuction(ctx, auction.ID)
			require.NoError(t, err)
			require.Equal(t, model.AuctionInactive, got.Status)
		})
	}
}

func TestAuctionService_SettleAuction_SellerWinsOwnAuction(t *testing.T) {
	t.Parallel()

	service, repo, clock := newTestService(t)
	ctx := context.Background()
	sellerID := createUser(t, repo, "seller", "40")

	auction, err := service.CreateAuction(ctx, sellerID, validListing(time.Hour))
	require.NoError(t, err)
	_, err = service.PlaceBid(ctx, auction.ID, sellerID, dec("10"))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	settlement, err := service.SettleAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, model.SettlementPaid, settlement.Outcome)
	require.True(t, dec("40").Equal(balanceOf(t, service, sellerID)))
}

// Concurrent bidding while the auction is being settled must never leave a bid
// on an INACTIVE auction that the settlement did not see.
func TestAuctionService_SettleAuction_ConcurrentBids(t *testing.T) {
	t.Parallel()

	service, repo, clock := newTestService(t)
	ctx := context.Background()
	sellerID := createUser(t, repo, "seller", "0")

	const bidders = 20
	bidderIDs := make([]int64, bidders)
	for i := range bidderIDs {
		bidderIDs[i] = createUser(t, repo, fmt.Sprintf("bidder%02d", i), "1000")
	}

	auction, err := service.CreateAuction(ctx, sellerID, validListing(time.Hour))
	require.NoError(t, err)
	clock.Advance(time.Hour - time.Second)

	var wg sync.WaitGroup
	for i, id := range bidderIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, _ = service.PlaceBid(ctx, auction.ID, id, decimal.NewFromInt(int64(10+i)))
		}(i, id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.Advance(time.Second)
		_, _ = service.SettleAuction(ctx, auction.ID)
	}()
	wg.Wait()

	// settle whatever is left if the sweep goroutine ran first
	clock.Advance(time.Second)
	_, err = service.SettleAuction(ctx, auction.ID)
	if err != nil {
		require.ErrorIs(t, err, auctionerrors.ErrAuctionAlreadySettled)
	}

	settlement := settlementOf(t, repo, auction.ID)
	bids, err := service.BidsForAuction(ctx, auction.ID)
	require.NoError(t, err)
	if len(bids) == 0 {
		require.Equal(t, model.SettlementNoBids, settlement.Outcome)
		return
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if b.Better(best) {
			best = b
		}
	}
	require.Equal(t, model.SettlementPaid, settlement.Outcome)
	require.NotNil(t, settlement.BidID)
	require.Equal(t, best.ID, *settlement.BidID)
	require.True(t, best.Price.Equal(balanceOf(t, service, sellerID)))
}
