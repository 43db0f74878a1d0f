package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"walletwise/internal/models"
	"walletwise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// CreateUserInput carries registration data. OpeningBalance seeds the wallet.
type CreateUserInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	OpeningBalance decimal.Decimal
}

// Profile is a user together with their current wallet balance.
type Profile struct {
	User    *models.User    `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

// AddTransactionInput is the caller-supplied part of a new transaction.
type AddTransactionInput struct {
	Type           models.TransactionType
	Amount         decimal.Decimal
	Category       string
	Description    string
	PaymentMethod  models.PaymentMethod
	Mood           models.Mood
	Date           *time.Time
	ForceDuplicate bool
}

// AddTransactionResult reports either a stored transaction or a detected duplicate.
type AddTransactionResult struct {
	Duplicate   bool                `json:"duplicate"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// TransactionQuery filters a transaction listing.
type TransactionQuery struct {
	Type models.TransactionType
	Page pagination.PageRequest
}

// TransactionPage is one page of transactions with pagination metadata.
type TransactionPage struct {
	Transactions []models.Transaction   `json:"transactions"`
	Pagination   pagination.Pagination `json:"pagination"`
}

// TransactionServicer defines the contract for the transaction ledger.
type TransactionServicer interface {
	AddTransaction(ctx context.Context, ownerID string, input AddTransactionInput) (*AddTransactionResult, error)
	DeleteTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	UndoTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	GetAllTransactions(ctx context.Context, ownerID string, query TransactionQuery) (*TransactionPage, error)
	GetTransactionByID(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	GetDeletedTransactions(ctx context.Context, ownerID string, page pagination.PageRequest) (*TransactionPage, error)
}

// ActivityKind names what a user did.
type ActivityKind string

const (
	ActivityTransactionAdded ActivityKind = "transaction_added"
)

// Activity describes a user action for downstream consumers (streaks, events).
type Activity struct {
	Kind          ActivityKind           `json:"kind"`
	TransactionID string                 `json:"transaction_id"`
	Type          models.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Category      string                 `json:"category"`
	Mood          models.Mood            `json:"mood,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// ActivityNotifier is told about user activity after it has been committed.
// Its failures never undo the activity.
type ActivityNotifier interface {
	RecordUserActivity(ctx context.Context, ownerID string, activity Activity) error
}

// GamificationServicer tracks points and logging streaks.
type GamificationServicer interface {
	ActivityNotifier
	GetStats(ctx context.Context, userID string) (*GamificationStats, error)
}

// GamificationStats is the public view of a user's progress.
type GamificationStats struct {
	Points             int64      `json:"points"`
	Level              int        `json:"level"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	TransactionsLogged int64      `json:"transactions_logged"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`
}

// BudgetInput carries the editable fields of a budget.
type BudgetInput struct {
	Category  string
	Name      string
	Amount    decimal.Decimal
	Period    models.BudgetPeriod
	StartDate time.Time
	EndDate   *time.Time
}

// BudgetUpdate carries optional budget changes.
type BudgetUpdate struct {
	Name     *string
	Amount   *decimal.Decimal
	Period   *models.BudgetPeriod
	EndDate  *time.Time
	IsActive *bool
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID    string          `json:"budget_id"`
	Category    string          `json:"category"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  float64         `json:"percentage"`
	Exceeded    bool            `json:"exceeded"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, input BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error)
}

// GoalInput carries the editable fields of a savings goal.
type GoalInput struct {
	Name                string
	Description         string
	TargetAmount        decimal.Decimal
	CurrentAmount       decimal.Decimal
	TargetDate          time.Time
	Category            models.GoalCategory
	Priority            models.GoalPriority
	MonthlyContribution decimal.Decimal
}

// GoalUpdate carries optional savings goal changes.
type GoalUpdate struct {
	Name                *string
	Description         *string
	TargetAmount        *decimal.Decimal
	TargetDate          *time.Time
	Category            *models.GoalCategory
	Priority            *models.GoalPriority
	MonthlyContribution *decimal.Decimal
	IsActive            *bool
}

// SavingsGoalServicer defines the contract for savings goals.
type SavingsGoalServicer interface {
	CreateGoal(ctx context.Context, userID string, input GoalInput) (*models.SavingsGoal, error)
	GetUserGoals(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.SavingsGoal], error)
	GetGoalByID(ctx context.Context, userID, goalID string) (*models.SavingsGoal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, update GoalUpdate) (*models.SavingsGoal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
	Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.SavingsGoal, error)
}

// CategoryTotal is spending in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// MoodTotal is spending tagged with one mood.
type MoodTotal struct {
	Mood  string          `json:"mood"`
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// Summary aggregates non-deleted transactions over a date range.
type Summary struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpense  decimal.Decimal `json:"total_expense"`
	Net           decimal.Decimal `json:"net"`
	ByCategory    []CategoryTotal `json:"by_category"`
	ExpenseByMood []MoodTotal     `json:"expense_by_mood"`
}

// ReportServicer builds read-only analytics over the ledger.
type ReportServicer interface {
	GetSummary(ctx context.Context, userID string, from, to time.Time) (*Summary, error)
}
