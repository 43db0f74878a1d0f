package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Type           models.TransactionType `json:"type" binding:"required,transaction_type" enums:"income,expense"`
	Amount         decimal.Decimal        `json:"amount" binding:"decimal_gt0" swaggertype:"string" example:"150.00"`
	Category       string                 `json:"category" binding:"required,max=64"`
	Description    string                 `json:"description" binding:"max=500"`
	PaymentMethod  models.PaymentMethod   `json:"payment_method" binding:"omitempty,payment_method" enums:"cash,upi,card,online"`
	Mood           models.Mood            `json:"mood" binding:"omitempty,mood" enums:"happy,stressed,bored,sad,calm,neutral"`
	Date           *string                `json:"date" example:"2024-06-01"`
	ForceDuplicate bool                   `json:"force_duplicate"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Add a transaction
// @Description Record an income or expense and apply it to the wallet balance. An identical transaction (type, amount, category) added in the last 24 hours is reported as a duplicate and nothing is stored, unless force_duplicate is set.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key header string false "Replays the first response for retried requests"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} services.AddTransactionResult "Transaction created"
// @Success     200 {object} services.AddTransactionResult "Duplicate detected, nothing stored"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Request with this idempotency key in progress"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	date, err := parseOptionalTime(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.AddTransaction(c.Request.Context(), userID, services.AddTransactionInput{
		Type:           req.Type,
		Amount:         req.Amount,
		Category:       req.Category,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		Mood:           req.Mood,
		Date:           date,
		ForceDuplicate: req.ForceDuplicate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// GetTransactions handles listing the user's active transactions
// @Summary     List transactions
// @Description Get a page of the user's transactions, newest first. Deleted transactions are never listed.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type  query string false "Filter by type" Enums(income, expense)
// @Param       page  query int    false "Page number (default 1)"
// @Param       limit query int    false "Items per page (default 10, max 100)"
// @Success     200 {object} services.TransactionPage "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
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

	query := services.TransactionQuery{Page: page}
	if v := c.Query("type"); v != "" {
		query.Type = models.TransactionType(v)
		if !query.Type.Valid() {
			respondWithError(c, apperrors.Validation("type", "type must be income or expense"))
			return
		}
	}

	result, err := h.transactionService.GetAllTransactions(c.Request.Context(), userID, query)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles fetching one active transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID format"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles soft-deleting a transaction
// @Summary     Delete a transaction
// @Description Soft-delete a transaction and reverse its effect on the wallet balance. It can be restored with undo for 30 minutes.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Deleted transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID format"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UndoTransaction handles restoring a recently deleted transaction
// @Summary     Undo a delete
// @Description Restore a soft-deleted transaction within the undo window and re-apply it to the wallet balance.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Restored transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID format"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No deleted transaction found to restore"
// @Failure     410 {object} ErrorResponse "Undo window has expired"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/undo [post]
func (h *TransactionHandler) UndoTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UndoTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
