package controllers

import (
	"context"
	"encoding/json"
	"go-travelapp/models"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ListingController handles listing-related requests
type ListingController struct {
	Collection       *mongo.Collection
	ReviewCollection *mongo.Collection
	UserCollection   *mongo.Collection
}

// NewListingController creates a new ListingController
func NewListingController(db *mongo.Database) *ListingController {
	return &ListingController{
		Collection:       db.Collection("listings"),
		ReviewCollection: db.Collection("reviews"),
		UserCollection:   db.Collection("users"),
	}
}

// GetListings retrieves all listings, optionally filtered by location and price range
func (lc *ListingController) GetListings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	filter := bson.M{}
	if location := r.URL.Query().Get("location"); location != "" {
		filter["location"] = location
	}
	price := bson.M{}
	if min := r.URL.Query().Get("min_price"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			price["$gte"] = v
		}
	}
	if max := r.URL.Query().Get("max_price"); max != "" {
		if v, err := strconv.ParseFloat(max, 64); err == nil {
			price["$lte"] = v
		}
	}
	if len(price) > 0 {
		filter["price_per_night"] = price
	}

	cursor, err := lc.Collection.Find(ctx, filter)
	if err != nil {
		http.Error(w, "Error fetching listings", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	for cursor.Next(ctx) {
		var listing models.Listing
		cursor.Decode(&listing)
		listings = append(listings, listing)
	}

	if err := cursor.Err(); err != nil {
		http.Error(w, "Error reading listings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}

// GetListingByID retrieves a single listing
func (lc *ListingController) GetListingByID(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["property_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var listing models.Listing
	err := lc.Collection.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&listing)
	if err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listing)
}

// CreateListing handles adding a new listing (host only)
func (lc *ListingController) CreateListing(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, lc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var listing models.Listing
	err := json.NewDecoder(r.Body).Decode(&listing)
	if err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if listing.Name == "" || listing.PricePerNight <= 0 {
		http.Error(w, "Name and a positive price_per_night are required", http.StatusBadRequest)
		return
	}

	listing.PropertyID = uuid.NewString()
	listing.HostID = user.UserID
	listing.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = lc.Collection.InsertOne(ctx, listing)
	if err != nil {
		http.Error(w, "Error creating listing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(listing)
}

// UpdateListing handles updating a listing (owning host only)
func (lc *ListingController) UpdateListing(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, lc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	propertyID := mux.Vars(r)["property_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var existing models.Listing
	if err := lc.Collection.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&existing); err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}
	if existing.HostID != user.UserID {
		http.Error(w, "Only the host can update this listing", http.StatusForbidden)
		return
	}

	var input models.Listing
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	update := bson.M{"$set": bson.M{
		"name":            input.Name,
		"description":     input.Description,
		"location":        input.Location,
		"price_per_night": input.PricePerNight,
	}}
	if _, err := lc.Collection.UpdateOne(ctx, bson.M{"property_id": propertyID}, update); err != nil {
		http.Error(w, "Error updating listing", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Listing updated successfully"})
}

// DeleteListing handles deleting a listing (owning host only)
func (lc *ListingController) DeleteListing(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, lc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	propertyID := mux.Vars(r)["property_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var existing models.Listing
	if err := lc.Collection.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&existing); err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}
	if existing.HostID != user.UserID {
		http.Error(w, "Only the host can delete this listing", http.StatusForbidden)
		return
	}

	if _, err := lc.Collection.DeleteOne(ctx, bson.M{"property_id": propertyID}); err != nil {
		http.Error(w, "Error deleting listing", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Listing deleted successfully"})
}

// GetReviews retrieves all reviews for a listing
func (lc *ListingController) GetReviews(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["property_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cursor, err := lc.ReviewCollection.Find(ctx, bson.M{"property_id": propertyID})
	if err != nil {
		http.Error(w, "Error fetching reviews", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	for cursor.Next(ctx) {
		var review models.Review
		cursor.Decode(&review)
		reviews = append(reviews, review)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reviews)
}

// AddReview adds a review to a listing, one per user
func (lc *ListingController) AddReview(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, lc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	propertyID := mux.Vars(r)["property_id"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var listing models.Listing
	if err := lc.Collection.FindOne(ctx, bson.M{"property_id": propertyID}).Decode(&listing); err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}

	// One review per user per property
	count, err := lc.ReviewCollection.CountDocuments(ctx, bson.M{
		"property_id": propertyID,
		"user_id":     user.UserID,
	})
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if count > 0 {
		http.Error(w, "You have already reviewed this property", http.StatusBadRequest)
		return
	}

	var review models.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if review.Rating < 1 || review.Rating > 5 {
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	review.ReviewID = uuid.NewString()
	review.PropertyID = propertyID
	review.UserID = user.UserID
	review.CreatedAt = time.Now()

	if _, err := lc.ReviewCollection.InsertOne(ctx, review); err != nil {
		http.Error(w, "Error creating review", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(review)
}

// MyListings retrieves all listings hosted by the current user
func (lc *ListingController) MyListings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, lc.UserCollection)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cursor, err := lc.Collection.Find(ctx, bson.M{"host_id": user.UserID})
	if err != nil {
		http.Error(w, "Error fetching listings", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	for cursor.Next(ctx) {
		var listing models.Listing
		cursor.Decode(&listing)
		listings = append(listings, listing)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}
