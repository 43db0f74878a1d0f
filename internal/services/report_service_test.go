package services

import (
	"context"
	"testing"
	"time"

	"walletwise/internal/models"
	"walletwise/internal/repository"
	"walletwise/internal/testutil"
)

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReportService(repository.NewGormLedgerRepository(db))
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeIncome, 3000, "salary", baseTime)
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 100, "food", baseTime)
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 50, "food", baseTime.Add(time.Hour))
	rent := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 1200, "rent", baseTime)
	db.Model(rent).Update("mood", models.MoodStressed)
	// Excluded rows.
	testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 999, "food", from.Add(-time.Hour))
	testutil.CreateTestTransaction(t, db, other.ID, models.TransactionTypeExpense, 999, "food", baseTime)
	gone := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeExpense, 999, "food", baseTime)
	testutil.SoftDeleteTestTransaction(t, db, gone, baseTime)

	t.Run("totals", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, user.ID, from, to)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, summary.TotalIncome, 3000)
		testutil.AssertDecimal(t, summary.TotalExpense, 1350)
		testutil.AssertDecimal(t, summary.Net, 1650)
	})

	t.Run("by_category_largest_first", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, user.ID, from, to)
		testutil.AssertNoError(t, err)

		if len(summary.ByCategory) != 2 {
			t.Fatalf("expected 2 expense categories, got %+v", summary.ByCategory)
		}
		if summary.ByCategory[0].Category != "rent" {
			t.Errorf("expected rent first, got %s", summary.ByCategory[0].Category)
		}
		if summary.ByCategory[1].Count != 2 {
			t.Errorf("expected 2 food transactions, got %d", summary.ByCategory[1].Count)
		}
	})

	t.Run("by_mood", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, user.ID, from, to)
		testutil.AssertNoError(t, err)

		if len(summary.ExpenseByMood) != 2 {
			t.Fatalf("expected stressed and untagged buckets, got %+v", summary.ExpenseByMood)
		}
		if summary.ExpenseByMood[0].Mood != "stressed" {
			t.Errorf("expected stressed first, got %s", summary.ExpenseByMood[0].Mood)
		}
		testutil.AssertDecimal(t, summary.ExpenseByMood[0].Total, 1200)
		if summary.ExpenseByMood[1].Mood != "untagged" {
			t.Errorf("expected untagged bucket, got %s", summary.ExpenseByMood[1].Mood)
		}
	})

	t.Run("invalid_range", func(t *testing.T) {
		_, err := svc.GetSummary(ctx, user.ID, to, from)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("empty_range", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, user.ID, to, to.AddDate(0, 1, 0))
		testutil.AssertNoError(t, err)
		if !summary.Net.IsZero() || len(summary.ByCategory) != 0 {
			t.Errorf("expected empty summary, got %+v", summary)
		}
	})
}
