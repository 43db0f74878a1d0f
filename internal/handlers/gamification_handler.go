package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise/internal/services"
)

// GamificationHandler exposes points and streaks.
type GamificationHandler struct {
	gamificationService services.GamificationServicer
}

// NewGamificationHandler creates a new GamificationHandler.
func NewGamificationHandler(gamificationService services.GamificationServicer) *GamificationHandler {
	return &GamificationHandler{gamificationService: gamificationService}
}

// GetStats returns the authenticated user's points, level and streaks.
// @Summary     Get gamification stats
// @Tags        gamification
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.GamificationStats "Stats"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /gamification/stats [get]
func (h *GamificationHandler) GetStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.gamificationService.GetStats(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
