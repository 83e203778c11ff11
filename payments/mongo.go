package payments

import (
	"context"
	"errors"
	"time"

	"go-travelapp/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentStore implements PaymentStore over the payments and
// payment_methods collections
type MongoPaymentStore struct {
	payments *mongo.Collection
	methods  *mongo.Collection
}

// NewMongoPaymentStore creates a payment store over the application database
func NewMongoPaymentStore(db *mongo.Database) *MongoPaymentStore {
	return &MongoPaymentStore{
		payments: db.Collection("payments"),
		methods:  db.Collection("payment_methods"),
	}
}

// EnsureIndexes creates the indexes the payment invariants rely on. The
// unique index on chapa_reference backs the one-payment-per-reference rule.
func (s *MongoPaymentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.payments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chapa_reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
		},
	})
	return err
}

// Create inserts a new payment attempt
func (s *MongoPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	_, err := s.payments.InsertOne(ctx, p)
	return err
}

// GetByTxRef looks a payment up by its gateway transaction reference
func (s *MongoPaymentStore) GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"chapa_reference": txRef})
}

// GetByPaymentID looks a payment up by its public id
func (s *MongoPaymentStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (s *MongoPaymentStore) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := s.payments.FindOne(ctx, filter).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// HasCompleted reports whether the booking already has a completed payment
func (s *MongoPaymentStore) HasCompleted(ctx context.Context, bookingID string) (bool, error) {
	count, err := s.payments.CountDocuments(ctx, bson.M{
		"booking_id":     bookingID,
		"payment_status": models.PaymentCompleted,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CompletePending transitions a pending payment to completed and records the
// gateway transaction id. Returns false when no pending payment matched,
// which makes the transition at-most-once under concurrent triggers.
func (s *MongoPaymentStore) CompletePending(ctx context.Context, txRef, transactionID string) (bool, error) {
	result, err := s.payments.UpdateOne(ctx,
		bson.M{"chapa_reference": txRef, "payment_status": models.PaymentPending},
		bson.M{"$set": bson.M{
			"payment_status": models.PaymentCompleted,
			"transaction_id": transactionID,
		}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// FailPending transitions a pending payment to failed
func (s *MongoPaymentStore) FailPending(ctx context.Context, txRef string) (bool, error) {
	result, err := s.payments.UpdateOne(ctx,
		bson.M{"chapa_reference": txRef, "payment_status": models.PaymentPending},
		bson.M{"$set": bson.M{"payment_status": models.PaymentFailed}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// ListByBookingIDs returns all payments for the given bookings, newest first
func (s *MongoPaymentStore) ListByBookingIDs(ctx context.Context, bookingIDs []string) ([]models.Payment, error) {
	cursor, err := s.payments.Find(ctx,
		bson.M{"booking_id": bson.M{"$in": bookingIDs}},
		options.Find().SetSort(bson.D{{Key: "payment_date", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// EnsureMethod lazily creates the named payment method descriptor
func (s *MongoPaymentStore) EnsureMethod(ctx context.Context, name string) error {
	_, err := s.methods.UpdateOne(ctx,
		bson.M{"method_name": name},
		bson.M{"$setOnInsert": bson.M{
			"method_name": name,
			"created_at":  time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// MongoBookingStore implements BookingStore over the bookings collection
type MongoBookingStore struct {
	bookings *mongo.Collection
}

// NewMongoBookingStore creates a booking store over the application database
func NewMongoBookingStore(db *mongo.Database) *MongoBookingStore {
	return &MongoBookingStore{bookings: db.Collection("bookings")}
}

// GetByBookingID looks a booking up by its public id
func (s *MongoBookingStore) GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.bookings.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Confirm sets the booking status to confirmed
func (s *MongoBookingStore) Confirm(ctx context.Context, bookingID string) error {
	_, err := s.bookings.UpdateOne(ctx,
		bson.M{"booking_id": bookingID},
		bson.M{"$set": bson.M{"status": models.BookingConfirmed}},
	)
	return err
}

// ListIDsByUser returns the booking ids belonging to a user
func (s *MongoBookingStore) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	cursor, err := s.bookings.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, err
		}
		ids = append(ids, booking.BookingID)
	}
	return ids, cursor.Err()
}

// MongoListingStore implements ListingStore over the listings collection
type MongoListingStore struct {
	listings *mongo.Collection
}

// NewMongoListingStore creates a listing store over the application database
func NewMongoListingStore(db *mongo.Database) *MongoListingStore {
	return &MongoListingStore{listings: db.Collection("listings")}
}

// GetByPropertyID looks a listing up by its public id
func (s *MongoListingStore) GetByPropertyID(ctx context.Context, propertyID string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.listings.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&listing); err != nil {
		return nil, err
	}
	return &listing, nil
}
