package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/middleware"
	"github.com/okanehq/okane-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the create budget request body
type CreateBudgetRequest struct {
	CategoryID     int32   `json:"categoryId"`
	Period         string  `json:"period"`
	StartDate      string  `json:"startDate"`
	EndDate        *string `json:"endDate,omitempty"`
	LimitAmount    string  `json:"limitAmount"`
	AlertThreshold *int32  `json:"alertThreshold,omitempty"`
}

// UpdateBudgetRequest represents the update budget request body
type UpdateBudgetRequest struct {
	LimitAmount    string `json:"limitAmount"`
	AlertThreshold int32  `json:"alertThreshold"`
}

// BudgetResponse represents a budget in API responses
type BudgetResponse struct {
	ID             int32   `json:"id"`
	CategoryID     int32   `json:"categoryId"`
	Period         string  `json:"period"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	LimitAmount    string  `json:"limitAmount"`
	Spent          string  `json:"spent"`
	AlertThreshold int32   `json:"alertThreshold"`
	UsagePercent   string  `json:"usagePercent"`
	AlertState     string  `json:"alertState"`
	WarningSentAt  *string `json:"warningSentAt,omitempty"`
	ExceededSentAt *string `json:"exceededSentAt,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toBudgetResponse(b *domain.Budget) BudgetResponse {
	resp := BudgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Period:         string(b.Period),
		StartDate:      b.StartDate.Format("2006-01-02"),
		EndDate:        b.EndDate.Format("2006-01-02"),
		LimitAmount:    b.LimitAmount.String(),
		Spent:          b.Spent.String(),
		AlertThreshold: b.AlertThreshold,
		UsagePercent:   b.UsagePercent().StringFixed(2),
		AlertState:     b.AlertState().String(),
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      b.UpdatedAt.Format(time.RFC3339),
	}
	if b.WarningAlertSentAt != nil {
		s := b.WarningAlertSentAt.Format(time.RFC3339)
		resp.WarningSentAt = &s
	}
	if b.ExceededAlertSentAt != nil {
		s := b.ExceededAlertSentAt.Format(time.RFC3339)
		resp.ExceededSentAt = &s
	}
	return resp
}

// CreateBudget godoc
// @Summary Create a budget
// @Description Create a budget for an expense category; spent is seeded from transactions already in the window
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBudgetRequest true "Budget creation request"
// @Success 201 {object} BudgetResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /budgets [post]
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var req CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if req.CategoryID <= 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "categoryId", Message: "Category ID is required"},
		})
	}

	limitAmount, err := decimal.NewFromString(req.LimitAmount)
	if err != nil {
		return NewValidationError(c, "Invalid limitAmount", []ValidationError{
			{Field: "limitAmount", Message: "Must be a valid decimal number"},
		})
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid startDate", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return NewValidationError(c, "Invalid endDate", []ValidationError{
				{Field: "endDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		endDate = &parsed
	}

	budget, err := h.budgetService.CreateBudget(userID, service.CreateBudgetInput{
		CategoryID:     req.CategoryID,
		Period:         domain.BudgetPeriod(req.Period),
		StartDate:      startDate,
		EndDate:        endDate,
		LimitAmount:    limitAmount,
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPeriod):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "period", Message: "Must be one of: daily, weekly, monthly, yearly"},
			})
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "limitAmount", Message: "Limit must be positive"},
			})
		case errors.Is(err, domain.ErrInvalidThreshold):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "alertThreshold", Message: "Must be between 0 and 100"},
			})
		case errors.Is(err, domain.ErrInvalidWindow):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "endDate", Message: "End date must not precede start date"},
			})
		case errors.Is(err, domain.ErrCategoryNotFound):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "categoryId", Message: "Category not found"},
			})
		case errors.Is(err, domain.ErrCategoryNotExpense):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "categoryId", Message: "Budgets can only track expense categories"},
			})
		case errors.Is(err, domain.ErrBudgetOverlap):
			return NewConflictError(c, "A budget of this period already covers part of this window for the category")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to create budget")
		return NewInternalError(c, "Failed to create budget")
	}

	log.Info().Str("user_id", userID.String()).Int32("budget_id", budget.ID).Msg("Budget created")

	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// GetBudgets godoc
// @Summary List budgets
// @Description Get all budgets for the authenticated user
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} BudgetResponse
// @Failure 401 {object} ProblemDetails
// @Router /budgets [get]
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	userID := middleware.GetUserID(c)

	budgets, err := h.budgetService.GetBudgets(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to get budgets")
		return NewInternalError(c, "Failed to get budgets")
	}

	response := make([]BudgetResponse, len(budgets))
	for i, b := range budgets {
		response[i] = toBudgetResponse(b)
	}
	return c.JSON(http.StatusOK, response)
}

// GetBudget godoc
// @Summary Get a budget
// @Description Get a single budget by ID
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget ID"
// @Success 200 {object} BudgetResponse
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	budget, err := h.budgetService.GetBudgetByID(userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Int("budget_id", id).Msg("Failed to get budget")
		return NewInternalError(c, "Failed to get budget")
	}

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// UpdateBudget godoc
// @Summary Update a budget
// @Description Update a budget's limit and alert threshold; latched alerts are not re-armed
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget ID"
// @Param request body UpdateBudgetRequest true "Budget update request"
// @Success 200 {object} BudgetResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	limitAmount, err := decimal.NewFromString(req.LimitAmount)
	if err != nil {
		return NewValidationError(c, "Invalid limitAmount", []ValidationError{
			{Field: "limitAmount", Message: "Must be a valid decimal number"},
		})
	}

	budget, err := h.budgetService.UpdateBudget(userID, int32(id), service.UpdateBudgetInput{
		LimitAmount:    limitAmount,
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "limitAmount", Message: "Limit must be positive"},
			})
		case errors.Is(err, domain.ErrInvalidThreshold):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "alertThreshold", Message: "Must be between 0 and 100"},
			})
		case errors.Is(err, domain.ErrBudgetNotFound):
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Int("budget_id", id).Msg("Failed to update budget")
		return NewInternalError(c, "Failed to update budget")
	}

	log.Info().Str("user_id", userID.String()).Int32("budget_id", budget.ID).Msg("Budget updated")

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// DeleteBudget godoc
// @Summary Delete a budget
// @Description Remove a budget
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget ID"
// @Success 204
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	if err := h.budgetService.DeleteBudget(userID, int32(id)); err != nil {
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Int("budget_id", id).Msg("Failed to delete budget")
		return NewInternalError(c, "Failed to delete budget")
	}

	log.Info().Str("user_id", userID.String()).Int("budget_id", id).Msg("Budget deleted")

	return c.NoContent(http.StatusNoContent)
}

// RefreshBudget godoc
// @Summary Refresh a budget's spent total
// @Description Recompute the budget's spent total from its window's transactions
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget ID"
// @Success 200 {object} BudgetResponse
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /budgets/{id}/refresh [post]
func (h *BudgetHandler) RefreshBudget(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid budget ID", nil)
	}

	budget, err := h.budgetService.RefreshBudgetSpent(userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrBudgetNotFound) {
			return NewNotFoundError(c, "Budget not found")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Int("budget_id", id).Msg("Failed to refresh budget")
		return NewInternalError(c, "Failed to refresh budget")
	}

	log.Info().Str("user_id", userID.String()).Int32("budget_id", budget.ID).Str("spent", budget.Spent.String()).Msg("Budget spent refreshed")

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}
