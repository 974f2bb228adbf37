package server

import (
	"net/http"

	"secured-auction/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(authHandler *handler.AuthHandler, auctionHandler *handler.AuctionHandler, auth Authenticator) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.RegisterHandler)
		authGroup.POST("/login", authHandler.LoginHandler)
		authGroup.GET("/public-key", authHandler.PublicKeyHandler)
	}

	router.POST("/list-auctions", auctionHandler.ListAuctionsHandler)

	bearer := router.Group("", BearerAuth(auth))
	{
		bearer.GET("/get-balance", auctionHandler.GetBalanceHandler)
	}

	signed := bearer.Group("", VerifySignature(auth))
	{
		signed.POST("/create-auction", auctionHandler.CreateAuctionHandler)
		signed.POST("/get-auction", auctionHandler.GetAuctionHandler)
		signed.POST("/delete-auction", auctionHandler.DeleteAuctionHandler)
		signed.POST("/bid", auctionHandler.PlaceBidHandler)
		signed.POST("/cancel-bid", auctionHandler.CancelBidHandler)
		signed.POST("/update-price", auctionHandler.UpdatePriceHandler)
		signed.POST("/auction-bids", auctionHandler.AuctionBidsHandler)
		signed.POST("/balance", auctionHandler.AddBalanceHandler)
	}

	return router
}
