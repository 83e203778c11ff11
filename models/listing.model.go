package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing represents a property listing offered by a host
type Listing struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PropertyID    string             `bson:"property_id" json:"property_id"`
	HostID        string             `bson:"host_id" json:"host_id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Location      string             `bson:"location" json:"location"`
	PricePerNight float64            `bson:"price_per_night" json:"price_per_night"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
