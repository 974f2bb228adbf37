package perftests

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	auction "secured-auction/internal/auctionService"
	model "secured-auction/internal/models"
	"secured-auction/internal/repository"

	"github.com/shopspring/decimal"
)

var benchStart = time.Unix(1_700_000_000, 0)

// fixture is a service over a seeded in-memory repository
type fixture struct {
	repo     *repository.MemoryRepo
	svc      *auction.AuctionService
	sellerID int64
	users    []int64
	auctions []int64
	now      atomic.Int64
}

func (f *fixture) clock() time.Time {
	return time.Unix(f.now.Load(), 0)
}

// advance moves the service clock forward
func (f *fixture) advance(d time.Duration) {
	f.now.Add(int64(d / time.Second))
}

// seed creates one seller, numUsers funded bidders and numAuctions open auctions
func seed(tb testing.TB, numUsers, numAuctions int) *fixture {
	tb.Helper()
	repo := repository.NewMemoryRepo()
	f := &fixture{repo: repo}
	f.now.Store(benchStart.Unix())
	f.svc = auction.NewAuctionService(repo, auction.WithClock(f.clock))

	err := repo.Update(context.Background(), func(tx repository.Tx) error {
		seller := model.User{Username: "seller", PasswordHash: "x", PublicKeyE: "3", PublicKeyN: "33"}
		if err := tx.CreateUser(&seller); err != nil {
			return err
		}
		f.sellerID = seller.ID

		for i := 0; i < numUsers; i++ {
			u := model.User{
				Username:     fmt.Sprintf("user_%d", i),
				PasswordHash: "x",
				Balance:      decimal.NewFromInt(1_000_000),
				PublicKeyE:   "3",
				PublicKeyN:   "33",
			}
			if err := tx.CreateUser(&u); err != nil {
				return err
			}
			f.users = append(f.users, u.ID)
		}

		for i := 0; i < numAuctions; i++ {
			a := model.Auction{
				SellerID:    seller.ID,
				Title:       fmt.Sprintf("Lot %d", i),
				Description: "Benchmark lot",
				BasePrice:   decimal.NewFromInt(5),
				CreatedAt:   benchStart.Unix(),
				EndAt:       benchStart.Add(time.Hour).Unix(),
				Status:      model.AuctionActive,
			}
			if err := tx.CreateAuction(&a); err != nil {
				return err
			}
			f.auctions = append(f.auctions, a.ID)
		}
		return nil
	})
	if err != nil {
		tb.Fatalf("failed to seed repository: %v", err)
	}
	return f
}
