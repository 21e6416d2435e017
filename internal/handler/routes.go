package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/okanehq/okane-backend/internal/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	transactionHandler *TransactionHandler,
	budgetHandler *BudgetHandler,
	balanceHandler *BalanceHandler,
	categoryHandler *CategoryHandler,
	receiptHandler *ReceiptHandler,
	wsHandler *WebSocketHandler,
) {
	// API documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)

	// WebSocket endpoint (token authenticated via query parameter)
	if wsHandler != nil {
		e.GET("/ws", wsHandler.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Receipt routes
	if receiptHandler != nil {
		transactions.POST("/:id/receipt", receiptHandler.UploadReceipt)
		transactions.GET("/:id/receipt", receiptHandler.GetReceiptURL)
		transactions.DELETE("/:id/receipt", receiptHandler.DeleteReceipt)
	}

	// Budget routes
	budgets := api.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.POST("/:id/refresh", budgetHandler.RefreshBudget)

	// Balance routes
	api.GET("/balances", balanceHandler.GetBalances)

	// Category routes
	api.GET("/categories", categoryHandler.GetCategories)
}
