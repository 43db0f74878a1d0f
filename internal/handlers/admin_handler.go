package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise/internal/services"
)

// AdminHandler serves operator-only views behind the admin API key.
type AdminHandler struct {
	transactionService services.TransactionServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(transactionService services.TransactionServicer) *AdminHandler {
	return &AdminHandler{transactionService: transactionService}
}

// GetDeletedTransactions lists a user's soft-deleted transactions.
// @Summary     List deleted transactions
// @Description Soft-deleted transactions of a user, most recently deleted first
// @Tags        admin
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id    path  string true  "User ID"
// @Param       page  query int    false "Page number (default 1)"
// @Param       limit query int    false "Items per page (default 10, max 100)"
// @Success     200 {object} services.TransactionPage "Deleted transactions"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/users/{id}/transactions/deleted [get]
func (h *AdminHandler) GetDeletedTransactions(c *gin.Context) {
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := parsePageRequest(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetDeletedTransactions(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
