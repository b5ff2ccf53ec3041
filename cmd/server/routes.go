package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quorum-vault.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	multisigHandler *handlers.MultisigHandler
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Wallet routes
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", d.multisigHandler.CreateWallet)
			wallets.GET("", d.multisigHandler.ListWallets)
			wallets.GET("/:id", d.multisigHandler.GetWallet)
			wallets.POST("/:id/signers", d.multisigHandler.AddSigner)
			wallets.DELETE("/:id/signers/:address", d.multisigHandler.RemoveSigner)
			wallets.POST("/:id/transactions", d.multisigHandler.ProposeTransaction)
			wallets.GET("/:id/transactions", d.multisigHandler.ListPendingTransactions)
		}

		// Transaction routes
		transactions := v1.Group("/transactions")
		{
			transactions.GET("/:id", d.multisigHandler.GetTransaction)
			transactions.GET("/:id/hash", d.multisigHandler.GetSigningHash)
			transactions.POST("/:id/sign", d.multisigHandler.SignTransaction)
			transactions.POST("/:id/cancel", d.multisigHandler.CancelTransaction)
		}
	}
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Owner-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "quorum-vault-backend",
			"version": "0.1.0",
		})
	})
}
