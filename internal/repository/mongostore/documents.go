package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise/internal/models"
	"walletwise/internal/repository"
)

const (
	// TransactionsCollection holds ledger entries.
	TransactionsCollection = "transactions"
	// WalletsCollection holds one balance document per owner, keyed by owner id.
	WalletsCollection = "wallets"
)

type transactionDocument struct {
	ID            string               `bson:"_id"`
	OwnerID       string               `bson:"owner_id"`
	Type          string               `bson:"type"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Category      string               `bson:"category"`
	Description   string               `bson:"description,omitempty"`
	PaymentMethod string               `bson:"payment_method,omitempty"`
	Mood          string               `bson:"mood,omitempty"`
	Date          time.Time            `bson:"date"`
	IsDeleted     bool                 `bson:"is_deleted"`
	DeletedAt     *time.Time           `bson:"deleted_at"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type walletDocument struct {
	ID        string               `bson:"_id"`
	Balance   primitive.Decimal128 `bson:"balance"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v, err)
	}
	return d, nil
}

func toDocument(tx *models.Transaction) (*transactionDocument, error) {
	amount, err := toDecimal128(tx.Amount)
	if err != nil {
		return nil, err
	}
	return &transactionDocument{
		ID:            tx.ID,
		OwnerID:       tx.OwnerID,
		Type:          string(tx.Type),
		Amount:        amount,
		Category:      tx.Category,
		Description:   tx.Description,
		PaymentMethod: string(tx.PaymentMethod),
		Mood:          string(tx.Mood),
		Date:          tx.Date,
		IsDeleted:     tx.IsDeleted,
		DeletedAt:     tx.DeletedAt,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}, nil
}

func (d *transactionDocument) toModel() (*models.Transaction, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	tx := &models.Transaction{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		Type:          models.TransactionType(d.Type),
		Amount:        amount,
		Category:      d.Category,
		Description:   d.Description,
		PaymentMethod: models.PaymentMethod(d.PaymentMethod),
		Mood:          models.Mood(d.Mood),
		Date:          d.Date.UTC(),
		IsDeleted:     d.IsDeleted,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
	if d.DeletedAt != nil {
		deletedAt := d.DeletedAt.UTC()
		tx.DeletedAt = &deletedAt
	}
	return tx, nil
}

// buildFilter translates a LedgerFilter into a query document.
func buildFilter(f repository.LedgerFilter) (bson.M, error) {
	q := bson.M{}
	if f.ID != "" {
		q["_id"] = f.ID
	}
	if f.OwnerID != "" {
		q["owner_id"] = f.OwnerID
	}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Amount != nil {
		amount, err := toDecimal128(*f.Amount)
		if err != nil {
			return nil, err
		}
		q["amount"] = amount
	}
	if f.IsDeleted != nil {
		q["is_deleted"] = *f.IsDeleted
	}
	if f.CreatedSince != nil {
		q["created_at"] = bson.M{"$gte": *f.CreatedSince}
	}
	if f.DateFrom != nil || f.DateTo != nil {
		date := bson.M{}
		if f.DateFrom != nil {
			date["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			date["$lt"] = *f.DateTo
		}
		q["date"] = date
	}
	return q, nil
}

func sortFor(s repository.SortOrder) bson.D {
	if s == repository.SortRecentlyDeleted {
		return bson.D{{Key: "deleted_at", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

func groupField(g repository.GroupBy) (string, error) {
	switch g {
	case repository.GroupByCategory:
		return "$category", nil
	case repository.GroupByMood:
		return "$mood", nil
	}
	return "", fmt.Errorf("unsupported group by: %s", g)
}

// aggregatePipeline groups matching entries by type and the requested field.
func aggregatePipeline(f repository.LedgerFilter, groupBy repository.GroupBy) (mongoPipeline, error) {
	match, err := buildFilter(f)
	if err != nil {
		return nil, err
	}
	field, err := groupField(groupBy)
	if err != nil {
		return nil, err
	}
	return mongoPipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "type", Value: "$type"},
				{Key: "key", Value: bson.D{{Key: "$ifNull", Value: bson.A{field, ""}}}},
			}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.type", Value: 1}, {Key: "_id.key", Value: 1}}}},
	}, nil
}

type mongoPipeline = []bson.D

type bucketDocument struct {
	ID struct {
		Type string `bson:"type"`
		Key  string `bson:"key"`
	} `bson:"_id"`
	Total primitive.Decimal128 `bson:"total"`
	Count int64                `bson:"count"`
}
