package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment status values. "pending" may transition to "completed" or "failed";
// both of those are terminal. A failed payment is never resurrected — retrying
// means creating a new Payment record.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment represents a single payment attempt for a booking, correlated with
// the gateway through ChapaReference.
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PaymentID         string             `bson:"payment_id" json:"payment_id"`
	BookingID         string             `bson:"booking_id" json:"booking_id"`
	Amount            float64            `bson:"amount" json:"amount"`
	Currency          string             `bson:"currency" json:"currency"`
	ChapaReference    string             `bson:"chapa_reference" json:"chapa_reference"`
	TransactionID     string             `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaymentStatus     string             `bson:"payment_status" json:"payment_status"`
	PaymentMethod     string             `bson:"payment_method" json:"payment_method"`
	CustomerEmail     string             `bson:"customer_email" json:"customer_email"`
	CustomerFirstName string             `bson:"customer_first_name" json:"customer_first_name"`
	CustomerLastName  string             `bson:"customer_last_name" json:"customer_last_name"`
	CustomerPhone     string             `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	PaymentDate       time.Time          `bson:"payment_date" json:"payment_date"`
}

// PaymentMethod describes a way of paying. Created lazily the first time a
// payment is initiated with it; "chapa" is the only method in use.
type PaymentMethod struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MethodName string             `bson:"method_name" json:"method_name"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
