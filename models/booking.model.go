package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking status values. A booking is confirmed as a side effect of its
// payment completing, or explicitly by the host.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking represents a guest's reservation of a listing
type Booking struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BookingID  string             `bson:"booking_id" json:"booking_id"`
	PropertyID string             `bson:"property_id" json:"property_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	StartDate  string             `bson:"start_date" json:"start_date"` // e.g. "2026-09-01"
	EndDate    string             `bson:"end_date" json:"end_date"`
	TotalPrice float64            `bson:"total_price" json:"total_price"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
