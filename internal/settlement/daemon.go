// Package settlement runs the periodic sweep that closes expired auctions.
package settlement

import (
	"context"
	"errors"
	"time"

	"secured-auction/internal/auctionerrors"
	model "secured-auction/internal/models"
	"secured-auction/utils"
)

//go:generate mockgen -source=daemon.go -destination=mock_settler.go -package=settlement

// Settler is the part of the auction ledger the daemon drives
type Settler interface {
	ExpiredAuctionIDs(ctx context.Context) ([]int64, error)
	SettleAuction(ctx context.Context, auctionID int64) (model.Settlement, error)
}

// Report summarizes one sweep
type Report struct {
	Settled int
	Skipped int
	Failed  int
}

// Daemon settles expired auctions on a fixed interval until its context ends
type Daemon struct {
	settler  Settler
	interval time.Duration
}

func NewDaemon(settler Settler, interval time.Duration) *Daemon {
	return &Daemon{settler: settler, interval: interval}
}

// Run sweeps once immediately and then on every tick. It returns when ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	utils.Info("settlement daemon started", map[string]any{"interval": d.interval.String()})

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.Sweep(ctx)
		select {
		case <-ctx.Done():
			utils.Info("settlement daemon stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep settles every auction that is expired right now. Failures are logged and the
// auction stays ACTIVE, so the next sweep retries it.
func (d *Daemon) Sweep(ctx context.Context) Report {
	var report Report

	ids, err := d.settler.ExpiredAuctionIDs(ctx)
	if err != nil {
		utils.Error("failed to list expired auctions", map[string]any{"error": err.Error()})
		return report
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		settlement, err := d.settler.SettleAuction(ctx, id)
		switch {
		case errors.Is(err, auctionerrors.ErrAuctionAlreadySettled),
			errors.Is(err, auctionerrors.ErrAuctionNotFound),
			errors.Is(err, auctionerrors.ErrAuctionOpen):
			// another settler or a delete got there first
			report.Skipped++
			utils.Debug("auction skipped", map[string]any{"auction_id": id, "reason": err.Error()})
		case err != nil:
			report.Failed++
			utils.Error("failed to settle auction", map[string]any{"auction_id": id, "error": err.Error()})
		default:
			report.Settled++
			fields := map[string]any{
				"auction_id": id,
				"outcome":    settlement.Outcome,
				"amount":     settlement.Amount.String(),
			}
			if settlement.WinnerID != nil {
				fields["winner_id"] = *settlement.WinnerID
			}
			utils.Info("auction settled", fields)
		}
	}

	if len(ids) > 0 {
		utils.Info("settlement sweep finished", map[string]any{
			"settled": report.Settled,
			"skipped": report.Skipped,
			"failed":  report.Failed,
		})
	}
	return report
}
