package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"walletwise/internal/models"
	"walletwise/internal/uuid"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password, unique email and zero balance.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithBalance(t, db, decimal.Zero)
}

// CreateTestUserWithBalance creates a user whose wallet starts at balance.
func CreateTestUserWithBalance(t *testing.T, db *gorm.DB, balance decimal.Decimal) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return createUser(t, db, email, balance)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	return createUser(t, db, email, decimal.Zero)
}

func createUser(t *testing.T, db *gorm.DB, email string, balance decimal.Decimal) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:         email,
		Password:      string(hash),
		IsActive:      true,
		WalletBalance: balance,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// WalletBalance reads the stored balance for a user.
func WalletBalance(t *testing.T, db *gorm.DB, userID string) decimal.Decimal {
	t.Helper()

	var user models.User
	if err := db.Select("wallet_balance").Where("id = ?", userID).First(&user).Error; err != nil {
		t.Fatalf("failed to read wallet balance: %v", err)
	}
	return user.WalletBalance
}

// AssertBalance fails the test if the user's stored balance differs from want.
func AssertBalance(t *testing.T, db *gorm.DB, userID string, want int64) {
	t.Helper()

	got := WalletBalance(t, db, userID)
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("expected wallet balance %d, got %s", want, got)
	}
}

// CreateTestTransaction inserts a ledger row directly, without touching the
// balance. createdAt controls the duplicate and listing windows.
func CreateTestTransaction(t *testing.T, db *gorm.DB, ownerID string, txType models.TransactionType, amount int64, category string, createdAt time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Type:      txType,
		Amount:    decimal.NewFromInt(amount),
		Category:  category,
		Date:      createdAt,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// SoftDeleteTestTransaction marks a row deleted at deletedAt, without touching the balance.
func SoftDeleteTestTransaction(t *testing.T, db *gorm.DB, tx *models.Transaction, deletedAt time.Time) {
	t.Helper()

	err := db.Model(&models.Transaction{}).Where("id = ?", tx.ID).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": deletedAt}).Error
	if err != nil {
		t.Fatalf("failed to soft delete test transaction: %v", err)
	}
	tx.IsDeleted = true
	tx.DeletedAt = &deletedAt
}

// CreateTestBudget creates a monthly budget for the given category.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, category string, amount int64, start time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:    userID,
		Category:  category,
		Name:      fmt.Sprintf("Test Budget %d", nextID()),
		Amount:    decimal.NewFromInt(amount),
		Period:    models.BudgetPeriodMonthly,
		StartDate: start,
		IsActive:  true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates an active savings goal due a year after now.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target int64, now time.Time) *models.SavingsGoal {
	t.Helper()

	goal := &models.SavingsGoal{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount: decimal.NewFromInt(target),
		TargetDate:   now.AddDate(1, 0, 0),
		Category:     models.GoalCategoryOther,
		Priority:     models.GoalPriorityMedium,
		IsActive:     true,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
