package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	auction "secured-auction/internal/auctionService"
	"secured-auction/internal/auth"
	"secured-auction/internal/config"
	"secured-auction/internal/repository"
	"secured-auction/internal/security"
	"secured-auction/internal/server"
	"secured-auction/internal/settlement"
	"secured-auction/services/auction/handler"
	"secured-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
		utils.Fatal("failed to configure logging", map[string]any{"error": err.Error()})
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	keys, created, err := security.LoadOrCreateKeyStore(cfg.Keys.Path, cfg.Keys.Bits)
	if err != nil {
		utils.Fatal("failed to load service keypair", map[string]any{"path": cfg.Keys.Path, "error": err.Error()})
	}
	if created {
		utils.Warn("generated new service keypair", map[string]any{"path": cfg.Keys.Path, "bits": cfg.Keys.Bits})
	}

	repo, closeRepo, err := openStore(cfg.DB)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"driver": cfg.DB.Driver, "error": err.Error()})
	}
	defer func() {
		if err := closeRepo(); err != nil {
			utils.Error("failed to close store", map[string]any{"error": err.Error()})
		}
	}()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	accounts := auth.NewAccountService(repo, keys, tokens)
	authenticator := auth.NewRequestAuthenticator(tokens, accounts)
	auctions := auction.NewAuctionService(repo, auction.WithCancelWindow(cfg.BidCancelWindow))
	daemon := settlement.NewDaemon(auctions, cfg.SettlementInterval)

	router := server.SetupRouter(
		handler.NewAuthHandler(accounts, keys),
		handler.NewAuctionHandler(auctions, keys),
		authenticator,
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           cors.New(cfg.CorsConfig).Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr, "env": cfg.Environment, "db": cfg.DB.Driver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return daemon.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		utils.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Error("server stopped with error", map[string]any{"error": err.Error()})
	}
}

// openStore returns the configured AuctionDB and a function releasing it
func openStore(cfg config.DBConfig) (repository.AuctionDB, func() error, error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryRepo(), func() error { return nil }, nil
	}
	repo, err := repository.OpenGorm(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}
