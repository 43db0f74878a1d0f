package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwise/internal/clock"
	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
)

// goalService handles savings goal business logic.
type goalService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewGoalService creates a new SavingsGoalServicer.
func NewGoalService(db *gorm.DB, clk clock.Clock) SavingsGoalServicer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &goalService{db: db, clock: clk}
}

// CreateGoal creates a savings goal. The target date must lie in the future.
func (s *goalService) CreateGoal(ctx context.Context, userID string, input GoalInput) (*models.SavingsGoal, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		return nil, apperrors.Validation("name", "name is required and cannot exceed 100 characters")
	}
	if len(input.Description) > 500 {
		return nil, apperrors.Validation("description", "description cannot exceed 500 characters")
	}
	if input.TargetAmount.LessThan(decimal.NewFromInt(1)) {
		return nil, apperrors.Validation("target_amount", "target amount must be at least 1")
	}
	if input.CurrentAmount.IsNegative() {
		return nil, apperrors.Validation("current_amount", "current amount cannot be negative")
	}
	if input.MonthlyContribution.IsNegative() {
		return nil, apperrors.Validation("monthly_contribution", "monthly contribution cannot be negative")
	}
	if !input.TargetDate.After(s.clock.Now()) {
		return nil, apperrors.Validation("target_date", "target date must be in the future")
	}

	category := input.Category
	if category == "" {
		category = models.GoalCategoryOther
	}
	if !category.Valid() {
		return nil, apperrors.Validation("category", "unknown goal category")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.GoalPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.Validation("priority", "priority must be Critical, High, Medium or Low")
	}

	goal := &models.SavingsGoal{
		UserID:              userID,
		Name:                name,
		Description:         strings.TrimSpace(input.Description),
		TargetAmount:        input.TargetAmount,
		CurrentAmount:       input.CurrentAmount,
		TargetDate:          input.TargetDate,
		Category:            category,
		Priority:            priority,
		MonthlyContribution: input.MonthlyContribution,
		IsActive:            true,
	}
	if err := s.db.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals returns a paginated list of the user's goals, most urgent first.
func (s *goalService) GetUserGoals(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.SavingsGoal], error) {
	page.Defaults(pagination.DefaultLimit)

	base := s.db.WithContext(ctx).Model(&models.SavingsGoal{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.SavingsGoal
	if err := base.Order("target_date ASC, id ASC").Scopes(pagination.Paginate(page)).Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page, total)
	return &result, nil
}

// GetGoalByID returns a goal if it belongs to the user.
func (s *goalService) GetGoalByID(ctx context.Context, userID, goalID string) (*models.SavingsGoal, error) {
	var goal models.SavingsGoal
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields of update.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, update GoalUpdate) (*models.SavingsGoal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" || len(name) > 100 {
			return nil, apperrors.Validation("name", "name is required and cannot exceed 100 characters")
		}
		goal.Name = name
	}
	if update.Description != nil {
		if len(*update.Description) > 500 {
			return nil, apperrors.Validation("description", "description cannot exceed 500 characters")
		}
		goal.Description = strings.TrimSpace(*update.Description)
	}
	if update.TargetAmount != nil {
		if update.TargetAmount.LessThan(decimal.NewFromInt(1)) {
			return nil, apperrors.Validation("target_amount", "target amount must be at least 1")
		}
		goal.TargetAmount = *update.TargetAmount
	}
	if update.TargetDate != nil {
		if !update.TargetDate.After(s.clock.Now()) {
			return nil, apperrors.Validation("target_date", "target date must be in the future")
		}
		goal.TargetDate = *update.TargetDate
	}
	if update.Category != nil {
		if !update.Category.Valid() {
			return nil, apperrors.Validation("category", "unknown goal category")
		}
		goal.Category = *update.Category
	}
	if update.Priority != nil {
		if !update.Priority.Valid() {
			return nil, apperrors.Validation("priority", "priority must be Critical, High, Medium or Low")
		}
		goal.Priority = *update.Priority
	}
	if update.MonthlyContribution != nil {
		if update.MonthlyContribution.IsNegative() {
			return nil, apperrors.Validation("monthly_contribution", "monthly contribution cannot be negative")
		}
		goal.MonthlyContribution = *update.MonthlyContribution
	}
	if update.IsActive != nil {
		goal.IsActive = *update.IsActive
	}

	if err := s.db.WithContext(ctx).Save(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// DeleteGoal soft-deletes a goal.
func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Contribute adds amount to an active goal's saved total and refreshes its progress.
func (s *goalService) Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.SavingsGoal, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "amount must be greater than zero")
	}
	if !models.FitsAmountScale(amount) {
		return nil, apperrors.Validation("amount", "amount cannot have more than 4 decimal places")
	}

	var goal models.SavingsGoal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SavingsGoal{}).
			Where("id = ? AND user_id = ? AND is_active = ?", goalID, userID, true).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing models.SavingsGoal
			if err := tx.Where("id = ? AND user_id = ?", goalID, userID).First(&existing).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrGoalNotFound
				}
				return err
			}
			return apperrors.ErrGoalInactive
		}

		if err := tx.Where("id = ?", goalID).First(&goal).Error; err != nil {
			return err
		}
		goal.RecomputeProgress()
		return tx.Model(&goal).UpdateColumn("progress", goal.Progress).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return &goal, nil
}
