package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review represents a guest's review of a listing
type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ReviewID   string             `bson:"review_id" json:"review_id"`
	PropertyID string             `bson:"property_id" json:"property_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Rating     int                `bson:"rating" json:"rating"` // 1-5
	Comment    string             `bson:"comment" json:"comment"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
