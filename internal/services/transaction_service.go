package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"walletwise/internal/clock"
	apperrors "walletwise/internal/errors"
	"walletwise/internal/logger"
	"walletwise/internal/metrics"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/repository"
	"walletwise/internal/uuid"
)

const (
	// DefaultDuplicateWindow is how far back an identical transaction counts as a duplicate.
	DefaultDuplicateWindow = 24 * time.Hour
	// DefaultUndoWindow is how long after deletion a transaction can be restored.
	DefaultUndoWindow = 30 * time.Minute
)

// TransactionConfig holds the ledger's time-window rules.
type TransactionConfig struct {
	DuplicateWindow  time.Duration
	UndoWindow       time.Duration
	DefaultPageLimit int
}

// TransactionDeps are the collaborators of the transaction service.
// Notifier and Metrics may be nil; Clock defaults to the system clock.
type TransactionDeps struct {
	Ledger     repository.LedgerRepository
	Accounts   repository.AccountRepository
	Transactor repository.Transactor
	Notifier   ActivityNotifier
	Clock      clock.Clock
	Metrics    *metrics.Metrics
}

// transactionService handles transaction-related business logic.
type transactionService struct {
	ledger     repository.LedgerRepository
	accounts   repository.AccountRepository
	transactor repository.Transactor
	notifier   ActivityNotifier
	clock      clock.Clock
	metrics    *metrics.Metrics
	cfg        TransactionConfig
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(deps TransactionDeps, cfg TransactionConfig) TransactionServicer {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = DefaultDuplicateWindow
	}
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = DefaultUndoWindow
	}
	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = pagination.DefaultLimit
	}
	return &transactionService{
		ledger:     deps.Ledger,
		accounts:   deps.Accounts,
		transactor: deps.Transactor,
		notifier:   deps.Notifier,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		cfg:        cfg,
	}
}

// AddTransaction validates the input, rejects near-duplicates unless forced,
// and stores the transaction together with its balance change.
func (s *transactionService) AddTransaction(ctx context.Context, ownerID string, input AddTransactionInput) (*AddTransactionResult, error) {
	category := strings.TrimSpace(input.Category)
	if err := validateAddInput(input, category); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if !input.ForceDuplicate {
		since := now.Add(-s.cfg.DuplicateWindow)
		amount := input.Amount
		_, err := s.ledger.FindOne(ctx, repository.LedgerFilter{
			OwnerID:      ownerID,
			Type:         input.Type,
			Category:     category,
			Amount:       &amount,
			IsDeleted:    repository.Active(),
			CreatedSince: &since,
		})
		switch {
		case err == nil:
			s.metrics.DuplicateDetected()
			return &AddTransactionResult{Duplicate: true}, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	date := now
	if input.Date != nil && !input.Date.IsZero() {
		date = input.Date.UTC()
	}

	tx := &models.Transaction{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Type:          input.Type,
		Amount:        input.Amount,
		Category:      category,
		Description:   strings.TrimSpace(input.Description),
		PaymentMethod: input.PaymentMethod,
		Mood:          input.Mood,
		Date:          date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Create(ctx, tx); err != nil {
			return err
		}
		return s.applyDelta(ctx, ownerID, tx, false)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.metrics.TransactionAdded(string(tx.Type))
	s.notify(ctx, ownerID, tx)

	return &AddTransactionResult{Transaction: tx}, nil
}

func validateAddInput(input AddTransactionInput, category string) error {
	if !input.Type.Valid() {
		return apperrors.Validation("type", "type must be income or expense")
	}
	if !input.Amount.IsPositive() {
		return apperrors.Validation("amount", "amount must be greater than zero")
	}
	if !models.FitsAmountScale(input.Amount) {
		return apperrors.Validation("amount", "amount cannot have more than 4 decimal places")
	}
	if category == "" {
		return apperrors.Validation("category", "category is required")
	}
	if input.PaymentMethod != "" && !input.PaymentMethod.Valid() {
		return apperrors.Validation("payment_method", "payment_method must be one of cash, upi, card, online")
	}
	if input.Mood != "" && !input.Mood.Valid() {
		return apperrors.Validation("mood", "mood must be one of happy, stressed, bored, sad, calm, neutral")
	}
	return nil
}

// notify reports the activity. A failing notifier is logged and counted only.
func (s *transactionService) notify(ctx context.Context, ownerID string, tx *models.Transaction) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.RecordUserActivity(ctx, ownerID, Activity{
		Kind:          ActivityTransactionAdded,
		TransactionID: tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Category:      tx.Category,
		Mood:          tx.Mood,
		OccurredAt:    tx.CreatedAt,
	})
	if err != nil {
		s.metrics.NotifierFailed("activity")
		logger.Get().Warnw("activity notification failed",
			"owner_id", ownerID,
			"transaction_id", tx.ID,
			"error", err,
		)
	}
}

// DeleteTransaction soft-deletes an active transaction and reverses its balance effect.
func (s *transactionService) DeleteTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrInvalidTransactionID
	}

	tx, err := s.ledger.FindOne(ctx, repository.LedgerFilter{ID: transactionID, OwnerID: ownerID, IsDeleted: repository.Active()})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.clock.Now()
	tx.IsDeleted = true
	tx.DeletedAt = &now
	tx.UpdatedAt = now

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Save(ctx, tx); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperrors.ErrTransactionNotFound
			}
			return err
		}
		return s.applyDelta(ctx, ownerID, tx, true)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.metrics.TransactionDeleted(string(tx.Type))
	return tx, nil
}

// UndoTransaction restores a soft-deleted transaction if its undo window is
// still open, re-applying its balance effect.
func (s *transactionService) UndoTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrInvalidTransactionID
	}

	tx, err := s.ledger.FindOne(ctx, repository.LedgerFilter{ID: transactionID, OwnerID: ownerID, IsDeleted: repository.Deleted()})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNoDeletedTransaction
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.clock.Now()
	if tx.DeletedAt == nil || now.Sub(*tx.DeletedAt) > s.cfg.UndoWindow {
		s.metrics.UndoExpired()
		return nil, apperrors.ErrUndoExpired
	}

	tx.IsDeleted = false
	tx.DeletedAt = nil
	tx.UpdatedAt = now

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Save(ctx, tx); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return apperrors.ErrNoDeletedTransaction
			}
			return err
		}
		return s.applyDelta(ctx, ownerID, tx, false)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.metrics.TransactionRestored(string(tx.Type))
	return tx, nil
}

// applyDelta moves the owner's balance by the transaction's signed amount,
// or by its inverse when reverse is set.
func (s *transactionService) applyDelta(ctx context.Context, ownerID string, tx *models.Transaction, reverse bool) error {
	delta := tx.SignedAmount()
	if reverse {
		delta = delta.Neg()
	}
	if _, err := s.accounts.ApplyBalanceDelta(ctx, ownerID, delta); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return err
	}
	return nil
}

// GetAllTransactions lists the owner's non-deleted transactions, newest first.
func (s *transactionService) GetAllTransactions(ctx context.Context, ownerID string, query TransactionQuery) (*TransactionPage, error) {
	if query.Type != "" && !query.Type.Valid() {
		return nil, apperrors.Validation("type", "type must be income or expense")
	}
	page := query.Page
	page.Defaults(s.cfg.DefaultPageLimit)

	return s.findPage(ctx, repository.LedgerFilter{
		OwnerID:   ownerID,
		Type:      query.Type,
		IsDeleted: repository.Active(),
	}, page)
}

// GetTransactionByID returns one of the owner's active transactions.
func (s *transactionService) GetTransactionByID(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrInvalidTransactionID
	}
	tx, err := s.ledger.FindOne(ctx, repository.LedgerFilter{ID: transactionID, OwnerID: ownerID, IsDeleted: repository.Active()})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}

// GetDeletedTransactions lists the owner's soft-deleted transactions, most
// recently deleted first.
func (s *transactionService) GetDeletedTransactions(ctx context.Context, ownerID string, page pagination.PageRequest) (*TransactionPage, error) {
	page.Defaults(s.cfg.DefaultPageLimit)
	return s.findPage(ctx, repository.LedgerFilter{
		OwnerID:   ownerID,
		IsDeleted: repository.Deleted(),
		Sort:      repository.SortRecentlyDeleted,
	}, page)
}

func (s *transactionService) findPage(ctx context.Context, filter repository.LedgerFilter, page pagination.PageRequest) (*TransactionPage, error) {
	txs, total, err := s.ledger.Find(ctx, filter, page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return &TransactionPage{
		Transactions: txs,
		Pagination:   pagination.NewPagination(total, page),
	}, nil
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
