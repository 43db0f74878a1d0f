// Package mongostore implements the ledger, wallet and transactor contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"walletwise/internal/logger"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
	"walletwise/internal/repository"
	"walletwise/internal/uuid"
)

// LedgerRepository stores transactions as documents.
type LedgerRepository struct {
	collection *mongo.Collection
}

// NewLedgerRepository creates a LedgerRepository over db.
func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{collection: db.Collection(TransactionsCollection)}
}

// EnsureIndexes creates the indexes used by listing and duplicate lookups.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "is_deleted", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "type", Value: 1}, {Key: "category", Value: 1}, {Key: "amount", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}
	return nil
}

// Create inserts tx as a ledger document.
func (r *LedgerRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New()
	}
	doc, err := toDocument(tx)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		logger.Get().Errorw("Failed to create ledger entry", "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// FindOne returns the first document matching filter in filter.Sort order, or ErrNotFound.
func (r *LedgerRepository) FindOne(ctx context.Context, filter repository.LedgerFilter) (*models.Transaction, error) {
	q, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}
	var doc transactionDocument
	err = r.collection.FindOne(ctx, q, options.FindOne().SetSort(sortFor(filter.Sort))).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return doc.toModel()
}

// Find returns one page of documents matching filter and the total match count.
func (r *LedgerRepository) Find(ctx context.Context, filter repository.LedgerFilter, page pagination.PageRequest) ([]models.Transaction, int64, error) {
	q, err := buildFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.collection.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	opts := options.Find().
		SetSort(sortFor(filter.Sort)).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))
	cursor, err := r.collection.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	txs := make([]models.Transaction, 0, len(docs))
	for i := range docs {
		tx, err := docs[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, *tx)
	}
	return txs, total, nil
}

// Save persists tx's deletion state. The stored document must still hold
// the opposite is_deleted flag, otherwise Save returns ErrStaleState.
func (r *LedgerRepository) Save(ctx context.Context, tx *models.Transaction) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": tx.ID, "owner_id": tx.OwnerID, "is_deleted": !tx.IsDeleted},
		bson.M{"$set": bson.M{
			"is_deleted": tx.IsDeleted,
			"deleted_at": tx.DeletedAt,
			"updated_at": tx.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrStaleState
	}
	return nil
}

// Aggregate totals and counts documents matching filter per type and groupBy key.
func (r *LedgerRepository) Aggregate(ctx context.Context, filter repository.LedgerFilter, groupBy repository.GroupBy) ([]repository.Bucket, error) {
	pipeline, err := aggregatePipeline(filter, groupBy)
	if err != nil {
		return nil, err
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bucketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ledger aggregate: %w", err)
	}

	buckets := make([]repository.Bucket, 0, len(docs))
	for _, d := range docs {
		total, err := fromDecimal128(d.Total)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, repository.Bucket{
			Type:  models.TransactionType(d.ID.Type),
			Key:   d.ID.Key,
			Total: total,
			Count: d.Count,
		})
	}
	return buckets, nil
}

// AccountRepository keeps one wallet document per owner.
type AccountRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewAccountRepository creates an AccountRepository over db.
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		collection: db.Collection(WalletsCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// OpenWallet inserts the owner's wallet document with its opening balance.
func (r *AccountRepository) OpenWallet(ctx context.Context, ownerID string, opening decimal.Decimal) (*models.Wallet, error) {
	balance, err := toDecimal128(opening)
	if err != nil {
		return nil, err
	}
	doc := walletDocument{ID: ownerID, Balance: balance, UpdatedAt: r.now()}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}
	return walletFromDocument(&doc)
}

// FindByID returns the owner's wallet.
func (r *AccountRepository) FindByID(ctx context.Context, ownerID string) (*models.Wallet, error) {
	var doc walletDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return walletFromDocument(&doc)
}

// ApplyBalanceDelta increments the balance with $inc. Wallets are never
// created here; an unopened wallet is ErrNotFound.
func (r *AccountRepository) ApplyBalanceDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (*models.Wallet, error) {
	inc, err := toDecimal128(delta)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After)

	var doc walletDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": ownerID},
		bson.M{
			"$inc": bson.M{"balance": inc},
			"$set": bson.M{"updated_at": r.now()},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return walletFromDocument(&doc)
}

func walletFromDocument(doc *walletDocument) (*models.Wallet, error) {
	balance, err := fromDecimal128(doc.Balance)
	if err != nil {
		return nil, err
	}
	return &models.Wallet{OwnerID: doc.ID, Balance: balance}, nil
}

// Transactor runs callbacks inside a multi-document transaction.
type Transactor struct {
	client *mongo.Client
}

// NewTransactor creates a Transactor. The deployment must be a replica set.
func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction runs fn with a session context; nested calls join the
// outer session. The driver retries fn on transient transaction errors.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
