package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwise/internal/clock"
	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/repository"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db     *gorm.DB
	ledger repository.LedgerRepository
	clock  clock.Clock
}

// NewBudgetService creates a new BudgetServicer. Spending is read from the
// ledger so it reflects whichever backend holds transactions.
func NewBudgetService(db *gorm.DB, ledger repository.LedgerRepository, clk clock.Clock) BudgetServicer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &budgetService{db: db, ledger: ledger, clock: clk}
}

// CreateBudget creates a new budget for a category.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error) {
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, apperrors.Validation("category", "category is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.Validation("amount", "amount must be greater than zero")
	}
	if !models.FitsAmountScale(input.Amount) {
		return nil, apperrors.Validation("amount", "amount cannot have more than 4 decimal places")
	}
	if !input.Period.Valid() {
		return nil, apperrors.Validation("period", "period must be monthly or yearly")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, apperrors.Validation("end_date", "end date must be after start date")
	}

	budget := &models.Budget{
		UserID:    userID,
		Category:  category,
		Name:      strings.TrimSpace(input.Name),
		Amount:    input.Amount,
		Period:    input.Period,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		IsActive:  true,
	}
	if budget.StartDate.IsZero() {
		budget.StartDate = s.clock.Now()
	}

	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults(pagination.DefaultLimit)

	base := s.db.WithContext(ctx).Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Session(&gorm.Session{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page, totalItems)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperrors.Validation("name", "name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.Validation("amount", "amount must be greater than zero")
		}
		if !models.FitsAmountScale(*update.Amount) {
			return nil, apperrors.Validation("amount", "amount cannot have more than 4 decimal places")
		}
		updates["amount"] = *update.Amount
	}
	if update.Period != nil {
		if !update.Period.Valid() {
			return nil, apperrors.Validation("period", "period must be monthly or yearly")
		}
		updates["period"] = *update.Period
	}
	if update.EndDate != nil {
		if update.EndDate.Before(budget.StartDate) {
			return nil, apperrors.Validation("end_date", "end date must be after start date")
		}
		updates["end_date"] = *update.EndDate
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(ctx, userID, budgetID)
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress calculates spending vs budget for the current period.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	periodStart, periodEnd := currentPeriod(budget.Period, s.clock.Now())

	buckets, err := s.ledger.Aggregate(ctx, repository.LedgerFilter{
		OwnerID:   userID,
		Type:      models.TransactionTypeExpense,
		Category:  budget.Category,
		IsDeleted: repository.Active(),
		DateFrom:  &periodStart,
		DateTo:    &periodEnd,
	}, repository.GroupByCategory)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	spent := decimal.Zero
	for _, b := range buckets {
		spent = spent.Add(b.Total)
	}

	remaining := budget.Amount.Sub(spent)
	var percentage float64
	if budget.Amount.IsPositive() {
		percentage = spent.Div(budget.Amount).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		Category:    budget.Category,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Budgeted:    budget.Amount,
		Spent:       spent,
		Remaining:   remaining,
		Percentage:  percentage,
		Exceeded:    spent.GreaterThan(budget.Amount),
	}, nil
}

// currentPeriod returns the [start, end) window of the period containing now.
func currentPeriod(period models.BudgetPeriod, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if period == models.BudgetPeriodYearly {
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
