package controllers

import (
	"context"
	"encoding/json"
	"go-travelapp/models"
	"go-travelapp/tasks"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BookingController handles booking-related requests
type BookingController struct {
	Collection        *mongo.Collection
	ListingCollection *mongo.Collection
	UserCollection    *mongo.Collection
	Queue             tasks.Queue
}

// NewBookingController creates a new BookingController
func NewBookingController(db *mongo.Database, queue tasks.Queue) *BookingController {
	return &BookingController{
		Collection:        db.Collection("bookings"),
		ListingCollection: db.Collection("listings"),
		UserCollection:    db.Collection("users"),
		Queue:             queue,
	}
}

// CreateBooking creates a new booking and queues the confirmation email
func (bc *BookingController) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		PropertyID string `json:"property_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	start, err1 := time.Parse("2006-01-02", input.StartDate)
	end, err2 := time.Parse("2006-01-02", input.EndDate)
	if err1 != nil || err2 != nil || !end.After(start) {
		http.Error(w, "start_date and end_date must be valid dates with end_date after start_date", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var listing models.Listing
	if err := bc.ListingCollection.FindOne(ctx, bson.M{"property_id": input.PropertyID}).Decode(&listing); err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}

	// Total price = nights * price_per_night, computed exactly
	nights := int64(end.Sub(start).Hours() / 24)
	total := decimal.NewFromFloat(listing.PricePerNight).Mul(decimal.NewFromInt(nights))

	booking := models.Booking{
		BookingID:  uuid.NewString(),
		PropertyID: input.PropertyID,
		UserID:     user.UserID,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		TotalPrice: total.InexactFloat64(),
		Status:     models.BookingPending,
		CreatedAt:  time.Now(),
	}

	if _, err := bc.Collection.InsertOne(ctx, booking); err != nil {
		http.Error(w, "Error creating booking", http.StatusInternalServerError)
		return
	}

	// Queue the confirmation email; the request does not wait on delivery.
	if err := bc.Queue.Enqueue(ctx, tasks.TaskBookingConfirmationEmail, booking.BookingID); err != nil {
		log.Printf("[bookings] failed to enqueue confirmation email for %s: %v", booking.BookingID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}

// GetBookings retrieves bookings where the user is the guest or the host
func (bc *BookingController) GetBookings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	propertyIDs, err := bc.hostedPropertyIDs(ctx, user.UserID)
	if err != nil {
		http.Error(w, "Error fetching listings", http.StatusInternalServerError)
		return
	}

	filter := bson.M{"$or": []bson.M{
		{"user_id": user.UserID},
		{"property_id": bson.M{"$in": propertyIDs}},
	}}

	bc.respondBookings(w, ctx, filter)
}

// GetBookingByID retrieves a single booking for its guest or host
func (bc *BookingController) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID := mux.Vars(r)["booking_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	booking, listing, err := bc.loadBookingWithListing(ctx, bookingID)
	if err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if booking.UserID != user.UserID && listing.HostID != user.UserID {
		http.Error(w, "You do not have permission to view this booking", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// ConfirmBooking confirms a booking (host only)
func (bc *BookingController) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID := mux.Vars(r)["booking_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	booking, listing, err := bc.loadBookingWithListing(ctx, bookingID)
	if err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if listing.HostID != user.UserID {
		http.Error(w, "Only the host can confirm bookings", http.StatusForbidden)
		return
	}

	if _, err := bc.Collection.UpdateOne(ctx, bson.M{"booking_id": bookingID},
		bson.M{"$set": bson.M{"status": models.BookingConfirmed}}); err != nil {
		http.Error(w, "Error updating booking", http.StatusInternalServerError)
		return
	}

	booking.Status = models.BookingConfirmed
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// CancelBooking cancels a booking (guest or host)
func (bc *BookingController) CancelBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	bookingID := mux.Vars(r)["booking_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	booking, listing, err := bc.loadBookingWithListing(ctx, bookingID)
	if err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if booking.UserID != user.UserID && listing.HostID != user.UserID {
		http.Error(w, "You do not have permission to cancel this booking", http.StatusForbidden)
		return
	}

	if _, err := bc.Collection.UpdateOne(ctx, bson.M{"booking_id": bookingID},
		bson.M{"$set": bson.M{"status": models.BookingCancelled}}); err != nil {
		http.Error(w, "Error updating booking", http.StatusInternalServerError)
		return
	}

	booking.Status = models.BookingCancelled
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// MyBookings retrieves all bookings for the current user as guest
func (bc *BookingController) MyBookings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, bc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	bc.respondBookings(w, ctx, bson.M{"user_id": user.UserID})
}

func (bc *BookingController) hostedPropertyIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := bc.ListingCollection.Find(ctx, bson.M{"host_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := []string{}
	for cursor.Next(ctx) {
		var listing models.Listing
		if err := cursor.Decode(&listing); err != nil {
			return nil, err
		}
		ids = append(ids, listing.PropertyID)
	}
	return ids, cursor.Err()
}

func (bc *BookingController) loadBookingWithListing(ctx context.Context, bookingID string) (*models.Booking, *models.Listing, error) {
	var booking models.Booking
	if err := bc.Collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&booking); err != nil {
		return nil, nil, err
	}
	var listing models.Listing
	if err := bc.ListingCollection.FindOne(ctx, bson.M{"property_id": booking.PropertyID}).Decode(&listing); err != nil {
		return nil, nil, err
	}
	return &booking, &listing, nil
}

func (bc *BookingController) respondBookings(w http.ResponseWriter, ctx context.Context, filter bson.M) {
	cursor, err := bc.Collection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Error fetching bookings", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	for cursor.Next(ctx) {
		var booking models.Booking
		cursor.Decode(&booking)
		bookings = append(bookings, booking)
	}

	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}
