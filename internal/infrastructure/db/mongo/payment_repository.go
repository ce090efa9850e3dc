package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

const paymentsCollection = "payments"

// PaymentRepository implements ports.PaymentRepository using MongoDB.
type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection(paymentsCollection)}
}

// Create inserts a new payment document.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// FindByTxnRef retrieves a payment by its merchant reference.
func (r *PaymentRepository) FindByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Payment
	if err := r.col.FindOne(ctx, bson.M{"txn_ref": txnRef}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Finalize atomically moves a pending payment to its terminal status. The
// status filter makes concurrent notifications for the same payment race
// safely: only the first one matches.
func (r *PaymentRepository) Finalize(ctx context.Context, n domain.GatewayNotification, status domain.PaymentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"txn_ref": n.TxnRef, "status": domain.PaymentPending}
	update := bson.M{"$set": bson.M{
		"status":         status,
		"response_code":  n.ResponseCode,
		"transaction_no": n.TransactionNo,
		"bank_code":      n.BankCode,
		"updated_at":     n.ReceivedAt.UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("finalize payment: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByTxnRef(ctx, n.TxnRef); err != nil {
			return err
		}
		return domain.ErrPaymentFinalized
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the payments collection.
func (r *PaymentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "txn_ref", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
