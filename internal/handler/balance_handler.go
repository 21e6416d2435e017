package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/middleware"
	"github.com/okanehq/okane-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// BalanceHandler handles balance-related HTTP requests
type BalanceHandler struct {
	balanceService *service.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balanceService *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService}
}

// BalancesResponse represents the three running balances in API responses
type BalancesResponse struct {
	Cash     string `json:"cash"`
	Bank     string `json:"bank"`
	Digital  string `json:"digital"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// GetBalances godoc
// @Summary Get balances
// @Description Get the authenticated user's cash, bank and digital balances
// @Tags balances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalancesResponse
// @Failure 401 {object} ProblemDetails
// @Router /balances [get]
func (h *BalanceHandler) GetBalances(c echo.Context) error {
	userID := middleware.GetUserID(c)

	balances, err := h.balanceService.GetBalances(userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return NewNotFoundError(c, "User not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get balances")
		return NewInternalError(c, "Failed to get balances")
	}

	return c.JSON(http.StatusOK, BalancesResponse{
		Cash:     balances.Cash.String(),
		Bank:     balances.Bank.String(),
		Digital:  balances.Digital.String(),
		Total:    balances.Total.String(),
		Currency: balances.Currency,
	})
}
