package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalCategory classifies a savings goal.
type GoalCategory string

const (
	GoalCategoryEmergencyFund GoalCategory = "Emergency Fund"
	GoalCategoryTravel        GoalCategory = "Travel"
	GoalCategoryEducation     GoalCategory = "Education"
	GoalCategoryHome          GoalCategory = "Home"
	GoalCategoryVehicle       GoalCategory = "Vehicle"
	GoalCategoryRetirement    GoalCategory = "Retirement"
	GoalCategoryWedding       GoalCategory = "Wedding"
	GoalCategoryHealth        GoalCategory = "Health"
	GoalCategoryGift          GoalCategory = "Gift"
	GoalCategoryOther         GoalCategory = "Other"
)

// GoalPriority orders savings goals.
type GoalPriority string

const (
	GoalPriorityCritical GoalPriority = "Critical"
	GoalPriorityHigh     GoalPriority = "High"
	GoalPriorityMedium   GoalPriority = "Medium"
	GoalPriorityLow      GoalPriority = "Low"
)

// Valid reports whether c is a known goal category.
func (c GoalCategory) Valid() bool {
	switch c {
	case GoalCategoryEmergencyFund, GoalCategoryTravel, GoalCategoryEducation, GoalCategoryHome,
		GoalCategoryVehicle, GoalCategoryRetirement, GoalCategoryWedding, GoalCategoryHealth,
		GoalCategoryGift, GoalCategoryOther:
		return true
	}
	return false
}

// Valid reports whether p is a known goal priority.
func (p GoalPriority) Valid() bool {
	switch p {
	case GoalPriorityCritical, GoalPriorityHigh, GoalPriorityMedium, GoalPriorityLow:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// SavingsGoal tracks progress towards a target amount by a target date.
type SavingsGoal struct {
	Base
	UserID              string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name                string          `gorm:"size:100;not null" json:"name"`
	Description         string          `gorm:"size:500" json:"description,omitempty"`
	TargetAmount        decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"target_amount"`
	CurrentAmount       decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0" json:"current_amount"`
	TargetDate          time.Time       `gorm:"not null" json:"target_date"`
	Category            GoalCategory    `gorm:"size:32;not null;default:Other" json:"category"`
	Priority            GoalPriority    `gorm:"size:16;not null;default:Medium" json:"priority"`
	MonthlyContribution decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0" json:"monthly_contribution"`
	IsActive            bool            `gorm:"default:true" json:"is_active"`
	Progress            float64         `gorm:"not null;default:0" json:"progress"`
}

// RecomputeProgress sets Progress to current/target as a percentage, capped at 100.
func (g *SavingsGoal) RecomputeProgress() {
	if !g.TargetAmount.IsPositive() {
		g.Progress = 0
		return
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	g.Progress = pct.Round(2).InexactFloat64()
}

// IsCompleted reports whether the target has been reached.
func (g *SavingsGoal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// BeforeSave keeps Progress in sync with the amounts.
func (g *SavingsGoal) BeforeSave(tx *gorm.DB) error {
	g.RecomputeProgress()
	return nil
}
