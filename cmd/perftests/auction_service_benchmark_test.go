package perftests

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"secured-auction/internal/security"

	"github.com/shopspring/decimal"
)

// Benchmark 1: PlaceBid - Isolated Auctions (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	f := seed(b, 100, 1000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		auctionID := f.auctions[i%len(f.auctions)]
		userID := f.users[i%len(f.users)]
		price := decimal.NewFromInt(int64(5 + rand.Intn(100)))
		if _, err := f.svc.PlaceBid(ctx, auctionID, userID, price); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Auction (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	f := seed(b, 500, 1)
	ctx := context.Background()
	auctionID := f.auctions[0]

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 5

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := f.users[rnd.Intn(len(f.users))]
			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			if _, err := f.svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(nextBid)); err != nil {
				b.Errorf("failed to place bid: %v", err)
			}
		}
	})
}

// Benchmark 3: HighestBid - Concurrent Readers on one auction
func Benchmark_HighestBid_ConcurrentSharedAuction(b *testing.B) {
	f := seed(b, 100, 1)
	ctx := context.Background()
	auctionID := f.auctions[0]

	for j, userID := range f.users {
		if _, err := f.svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(int64(5+j))); err != nil {
			b.Fatalf("failed to seed bid: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := f.svc.HighestBid(ctx, auctionID); err != nil {
				b.Errorf("failed to read highest bid: %v", err)
			}
		}
	})
}

// Benchmark 4: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedAuction(b *testing.B) {
	f := seed(b, 200, 1)
	ctx := context.Background()
	auctionID := f.auctions[0]

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 5

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			if rnd.Intn(10) < 3 {
				userID := f.users[rnd.Intn(len(f.users))]
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
				_, _ = f.svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(nextBid))
				continue
			}
			_, _ = f.svc.HighestBid(ctx, auctionID)
		}
	})
}

// Benchmark 5: Settlement of expired auctions, ten bids each
func Benchmark_SettleAuction(b *testing.B) {
	f := seed(b, 10, b.N)
	ctx := context.Background()

	for _, auctionID := range f.auctions {
		for j, userID := range f.users {
			if _, err := f.svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(int64(5+j))); err != nil {
				b.Fatalf("failed to seed bid: %v", err)
			}
		}
	}
	f.advance(2 * time.Hour)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := f.svc.SettleAuction(ctx, f.auctions[i]); err != nil {
			b.Fatalf("failed to settle auction: %v", err)
		}
	}
}

// Benchmark 6: Envelope verification, the per-request signature check
func Benchmark_VerifyEnvelope(b *testing.B) {
	keys, err := security.GenerateKeyStore(2048)
	if err != nil {
		b.Fatalf("failed to generate keys: %v", err)
	}
	env, err := keys.Seal(map[string]any{"auction_id": 42, "price": "17.50"})
	if err != nil {
		b.Fatalf("failed to seal message: %v", err)
	}
	pub := keys.Public()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if !env.Valid(pub) {
				b.Errorf("envelope did not verify")
			}
		}
	})
}
