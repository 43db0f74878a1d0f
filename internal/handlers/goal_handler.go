package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwise/internal/models"
	"walletwise/internal/services"
)

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService services.SavingsGoalServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.SavingsGoalServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// CreateGoalRequest represents the request payload for creating a savings goal.
type CreateGoalRequest struct {
	Name                string              `json:"name" binding:"required,min=1,max=100"`
	Description         string              `json:"description" binding:"max=500"`
	TargetAmount        decimal.Decimal     `json:"target_amount" binding:"decimal_gt0" swaggertype:"string" example:"50000"`
	CurrentAmount       *decimal.Decimal    `json:"current_amount" binding:"omitempty,decimal_gte0" swaggertype:"string" example:"0"`
	TargetDate          string              `json:"target_date" binding:"required" example:"2026-12-31"`
	Category            models.GoalCategory `json:"category" binding:"omitempty,goal_category"`
	Priority            models.GoalPriority `json:"priority" binding:"omitempty,goal_priority" enums:"Critical,High,Medium,Low"`
	MonthlyContribution *decimal.Decimal    `json:"monthly_contribution" binding:"omitempty,decimal_gte0" swaggertype:"string"`
}

// UpdateGoalRequest represents the request payload for updating a savings goal.
type UpdateGoalRequest struct {
	Name                *string              `json:"name" binding:"omitempty,min=1,max=100"`
	Description         *string              `json:"description" binding:"omitempty,max=500"`
	TargetAmount        *decimal.Decimal     `json:"target_amount" binding:"omitempty,decimal_gt0" swaggertype:"string"`
	TargetDate          *string              `json:"target_date"`
	Category            *models.GoalCategory `json:"category" binding:"omitempty,goal_category"`
	Priority            *models.GoalPriority `json:"priority" binding:"omitempty,goal_priority"`
	MonthlyContribution *decimal.Decimal     `json:"monthly_contribution" binding:"omitempty,decimal_gte0" swaggertype:"string"`
	IsActive            *bool                `json:"is_active"`
}

// ContributeRequest adds money to a goal.
type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"2500"`
}

// CreateGoal handles the creation of a savings goal.
// @Summary     Create a savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.SavingsGoal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	targetDate, err := parseOptionalTime(&req.TargetDate, "target_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	input := services.GoalInput{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		TargetDate:   *targetDate,
		Category:     req.Category,
		Priority:     req.Priority,
	}
	if req.CurrentAmount != nil {
		input.CurrentAmount = *req.CurrentAmount
	}
	if req.MonthlyContribution != nil {
		input.MonthlyContribution = *req.MonthlyContribution
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals handles listing the user's savings goals.
// @Summary     List savings goals
// @Description Goals ordered by target date, soonest first
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       is_active query bool false "Filter by active status"
// @Param       page      query int  false "Page number (default 1)"
// @Param       limit     query int  false "Items per page (default 10, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SavingsGoal] "Paginated goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := parsePageRequest(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	isActive, err := parseOptionalBool(c, "is_active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.goalService.GetUserGoals(c.Request.Context(), userID, page, isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGoal handles retrieving one savings goal.
// @Summary     Get savings goal by ID
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.SavingsGoal "Goal"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(c.Request.Context(), userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles updating a savings goal.
// @Summary     Update savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Fields to change"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	targetDate, err := parseOptionalTime(req.TargetDate, "target_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, services.GoalUpdate{
		Name:                req.Name,
		Description:         req.Description,
		TargetAmount:        req.TargetAmount,
		TargetDate:          targetDate,
		Category:            req.Category,
		Priority:            req.Priority,
		MonthlyContribution: req.MonthlyContribution,
		IsActive:            req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a savings goal.
// @Summary     Delete savings goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Savings goal deleted successfully"})
}

// Contribute handles adding money to a savings goal.
// @Summary     Contribute to a savings goal
// @Description Increase the goal's saved amount. The wallet balance is not changed.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body ContributeRequest true "Contribution"
// @Success     200 {object} models.SavingsGoal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input or inactive goal"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contribute [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	goal, err := h.goalService.Contribute(c.Request.Context(), userID, goalID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}
