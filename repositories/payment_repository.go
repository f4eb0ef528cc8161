package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartsouq/smartsouq_backend/config"
	"github.com/smartsouq/smartsouq_backend/models"
)

// PaymentStore is the persistence boundary for payment records. The Mongo
// implementation below is the production store; tests substitute in-memory
// fakes.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	FindCompletedByTxID(ctx context.Context, txID string) (*models.Payment, error)
	AppendLog(ctx context.Context, orderID, event, detail string) error
	RecentLogs(ctx context.Context, limit int64) ([]models.PaymentLog, error)
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = mongo.ErrNoDocuments

type PaymentRepository struct {
	payments *mongo.Collection
	logs     *mongo.Collection
}

func NewPaymentRepository(db *mongo.Client) *PaymentRepository {
	return &PaymentRepository{
		payments: config.GetCollection(db, "payments"),
		logs:     config.GetCollection(db, "payment_logs"),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	_, err := r.payments.InsertOne(ctx, payment)
	return err
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.payments.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	filter := bson.M{"orderId": payment.OrderID}
	_, err := r.payments.ReplaceOne(ctx, filter, payment)
	return err
}

// FindCompletedByTxID reports whether a transfer has already been claimed by
// another completed payment.
func (r *PaymentRepository) FindCompletedByTxID(ctx context.Context, txID string) (*models.Payment, error) {
	var payment models.Payment
	filter := bson.M{"txId": txID, "status": models.PaymentStatusCompleted}
	err := r.payments.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) AppendLog(ctx context.Context, orderID, event, detail string) error {
	entry := models.PaymentLog{
		OrderID:   orderID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	_, err := r.logs.InsertOne(ctx, entry)
	return err
}

// RecentLogs returns the newest audit entries, newest first.
func (r *PaymentRepository) RecentLogs(ctx context.Context, limit int64) ([]models.PaymentLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: -1}}).SetLimit(limit)
	cursor, err := r.logs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.PaymentLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
