package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/repository"
)

// reportService builds read-only analytics from ledger aggregates.
type reportService struct {
	ledger repository.LedgerRepository
}

// NewReportService creates a new ReportServicer.
func NewReportService(ledger repository.LedgerRepository) ReportServicer {
	return &reportService{ledger: ledger}
}

// GetSummary totals the user's non-deleted transactions dated in [from, to).
func (s *reportService) GetSummary(ctx context.Context, userID string, from, to time.Time) (*Summary, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("to", "to must be after from")
	}

	filter := repository.LedgerFilter{
		OwnerID:   userID,
		IsDeleted: repository.Active(),
		DateFrom:  &from,
		DateTo:    &to,
	}

	byCategory, err := s.ledger.Aggregate(ctx, filter, repository.GroupByCategory)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	expenses := filter
	expenses.Type = models.TransactionTypeExpense
	byMood, err := s.ledger.Aggregate(ctx, expenses, repository.GroupByMood)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &Summary{
		From:          from,
		To:            to,
		TotalIncome:   decimal.Zero,
		TotalExpense:  decimal.Zero,
		ByCategory:    []CategoryTotal{},
		ExpenseByMood: []MoodTotal{},
	}

	for _, b := range byCategory {
		switch b.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(b.Total)
		case models.TransactionTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(b.Total)
			summary.ByCategory = append(summary.ByCategory, CategoryTotal{Category: b.Key, Total: b.Total, Count: b.Count})
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)

	for _, b := range byMood {
		mood := b.Key
		if mood == "" {
			mood = "untagged"
		}
		summary.ExpenseByMood = append(summary.ExpenseByMood, MoodTotal{Mood: mood, Total: b.Total, Count: b.Count})
	}

	// Largest spend first.
	sort.SliceStable(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Total.GreaterThan(summary.ByCategory[j].Total)
	})
	sort.SliceStable(summary.ExpenseByMood, func(i, j int) bool {
		return summary.ExpenseByMood[i].Total.GreaterThan(summary.ExpenseByMood[j].Total)
	})

	return summary, nil
}
