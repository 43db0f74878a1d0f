package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/uuid"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// GormTransactor implements Transactor with a SQL transaction.
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a Transactor over db.
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction runs fn in a SQL transaction. Nested calls join the outer one.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GormLedgerRepository stores transactions in the transactions table.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a LedgerRepository over db.
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Create inserts tx.
func (r *GormLedgerRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New()
	}
	return conn(ctx, r.db).Create(tx).Error
}

// FindOne returns the first row matching filter in filter.Sort order, or ErrNotFound.
func (r *GormLedgerRepository) FindOne(ctx context.Context, filter LedgerFilter) (*models.Transaction, error) {
	var tx models.Transaction
	err := applyLedgerFilter(conn(ctx, r.db).Model(&models.Transaction{}), filter).
		Order(orderClause(filter.Sort)).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// Find returns one page of rows matching filter and the total match count.
func (r *GormLedgerRepository) Find(ctx context.Context, filter LedgerFilter, page pagination.PageRequest) ([]models.Transaction, int64, error) {
	base := applyLedgerFilter(conn(ctx, r.db).Model(&models.Transaction{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.Transaction
	if err := base.Session(&gorm.Session{}).
		Order(orderClause(filter.Sort)).
		Scopes(pagination.Paginate(page)).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// Save persists tx's deletion state. The stored row must still hold the
// opposite IsDeleted flag, otherwise Save returns ErrStaleState.
func (r *GormLedgerRepository) Save(ctx context.Context, tx *models.Transaction) error {
	res := conn(ctx, r.db).Model(&models.Transaction{}).
		Where("id = ? AND owner_id = ? AND is_deleted = ?", tx.ID, tx.OwnerID, !tx.IsDeleted).
		Updates(map[string]interface{}{
			"is_deleted": tx.IsDeleted,
			"deleted_at": tx.DeletedAt,
			"updated_at": tx.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// Aggregate totals and counts rows matching filter per type and groupBy key.
func (r *GormLedgerRepository) Aggregate(ctx context.Context, filter LedgerFilter, groupBy GroupBy) ([]Bucket, error) {
	column, err := groupColumn(groupBy)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Type     models.TransactionType
		GroupKey string
		Total    decimal.Decimal
		Count    int64
	}
	err = applyLedgerFilter(conn(ctx, r.db).Model(&models.Transaction{}), filter).
		Select("type, COALESCE(" + column + ", '') AS group_key, SUM(amount) AS total, COUNT(*) AS count").
		Group("type, " + column).
		Order("type, group_key").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, Bucket{Type: row.Type, Key: row.GroupKey, Total: row.Total, Count: row.Count})
	}
	return buckets, nil
}

func groupColumn(g GroupBy) (string, error) {
	switch g {
	case GroupByCategory:
		return "category", nil
	case GroupByMood:
		return "mood", nil
	}
	return "", errors.New("unsupported group by: " + string(g))
}

func orderClause(s SortOrder) string {
	if s == SortRecentlyDeleted {
		return "deleted_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}

func applyLedgerFilter(q *gorm.DB, f LedgerFilter) *gorm.DB {
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Amount != nil {
		q = q.Where("amount = ?", *f.Amount)
	}
	if f.IsDeleted != nil {
		q = q.Where("is_deleted = ?", *f.IsDeleted)
	}
	if f.CreatedSince != nil {
		q = q.Where("created_at >= ?", *f.CreatedSince)
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("date < ?", *f.DateTo)
	}
	return q
}

// GormAccountRepository keeps wallet balances on the users table.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates an AccountRepository over db.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// OpenWallet writes the opening balance onto the owner's user row.
func (r *GormAccountRepository) OpenWallet(ctx context.Context, ownerID string, opening decimal.Decimal) (*models.Wallet, error) {
	db := conn(ctx, r.db)
	res := db.Model(&models.User{}).
		Where("id = ?", ownerID).
		UpdateColumn("wallet_balance", opening)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.find(db, ownerID)
}

// FindByID returns the owner's current balance.
func (r *GormAccountRepository) FindByID(ctx context.Context, ownerID string) (*models.Wallet, error) {
	return r.find(conn(ctx, r.db), ownerID)
}

// ApplyBalanceDelta adds delta in a single UPDATE so concurrent writers never
// lose an increment.
func (r *GormAccountRepository) ApplyBalanceDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (*models.Wallet, error) {
	db := conn(ctx, r.db)
	res := db.Model(&models.User{}).
		Where("id = ?", ownerID).
		UpdateColumn("wallet_balance", gorm.Expr("wallet_balance + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.find(db, ownerID)
}

func (r *GormAccountRepository) find(db *gorm.DB, ownerID string) (*models.Wallet, error) {
	var user models.User
	if err := db.Select("id", "wallet_balance").Where("id = ?", ownerID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &models.Wallet{OwnerID: user.ID, Balance: user.WalletBalance}, nil
}
