// routes/routes.go
package routes

import (
	"go-travelapp/controllers"
	"go-travelapp/middleware"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, userController *controllers.UserController, listingController *controllers.ListingController, bookingController *controllers.BookingController, paymentController *controllers.PaymentController) {
	// Public routes
	router.HandleFunc("/register", userController.Register).Methods("POST")
	router.HandleFunc("/login", userController.Login).Methods("POST")

	// Chapa calls this endpoint; it must stay unauthenticated
	router.HandleFunc("/api/payments/webhook/", paymentController.Webhook).Methods("POST")

	// Host routes for managing listings
	host := router.PathPrefix("/api/listings").Subrouter()
	host.Use(middleware.AuthMiddleware)
	host.Use(middleware.HostMiddleware)
	host.HandleFunc("", listingController.CreateListing).Methods("POST")
	host.HandleFunc("/my_listings", listingController.MyListings).Methods("GET")
	host.HandleFunc("/{property_id}", listingController.UpdateListing).Methods("PUT")
	host.HandleFunc("/{property_id}", listingController.DeleteListing).Methods("DELETE")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/users/me", userController.Me).Methods("GET")
	protected.HandleFunc("/listings/{property_id}/reviews", listingController.AddReview).Methods("POST")

	// Booking routes
	protected.HandleFunc("/bookings", bookingController.GetBookings).Methods("GET")
	protected.HandleFunc("/bookings", bookingController.CreateBooking).Methods("POST")
	protected.HandleFunc("/bookings/my_bookings", bookingController.MyBookings).Methods("GET")
	protected.HandleFunc("/bookings/{booking_id}", bookingController.GetBookingByID).Methods("GET")
	protected.HandleFunc("/bookings/{booking_id}/confirm", bookingController.ConfirmBooking).Methods("POST")
	protected.HandleFunc("/bookings/{booking_id}/cancel", bookingController.CancelBooking).Methods("POST")

	// Payment routes; literal paths before the {payment_id} catch-all
	protected.HandleFunc("/payments/initiate/", paymentController.InitiatePayment).Methods("POST")
	protected.HandleFunc("/payments/verify/{tx_ref}/", paymentController.VerifyPayment).Methods("GET")
	protected.HandleFunc("/payments/banks/", paymentController.ListBanks).Methods("GET")
	protected.HandleFunc("/payments/", paymentController.ListPayments).Methods("GET")
	protected.HandleFunc("/payments/{payment_id}/", paymentController.GetPayment).Methods("GET")

	// Public listing routes
	router.HandleFunc("/api/listings", listingController.GetListings).Methods("GET")
	router.HandleFunc("/api/listings/{property_id}", listingController.GetListingByID).Methods("GET")
	router.HandleFunc("/api/listings/{property_id}/reviews", listingController.GetReviews).Methods("GET")
}
