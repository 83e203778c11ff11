package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"go-travelapp/chapa"
	"go-travelapp/payments"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
)

// PaymentController handles payment-related requests. It adapts HTTP to the
// payments service; all state rules live there.
type PaymentController struct {
	Service        *payments.Service
	UserCollection *mongo.Collection
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(db *mongo.Database, service *payments.Service) *PaymentController {
	return &PaymentController{
		Service:        service,
		UserCollection: db.Collection("users"),
	}
}

// paymentError maps service errors onto the HTTP error taxonomy
func paymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payments.ErrBookingNotFound),
		errors.Is(err, payments.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payments.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, payments.ErrAlreadyPaid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrGateway):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[payments] internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "An error occurred")
	}
}

// InitiatePayment starts a payment for a booking
// POST /api/payments/initiate/
func (pc *PaymentController) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, pc.UserCollection)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.BookingID == "" {
		respondError(w, http.StatusBadRequest, "booking_id is required")
		return
	}

	// Chapa calls back on the webhook endpoint of this deployment.
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	callbackURL := fmt.Sprintf("%s://%s/api/payments/webhook/", scheme, r.Host)

	result, err := pc.Service.Initiate(r.Context(), input.BookingID, user, callbackURL)
	if err != nil {
		paymentError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":       "success",
		"message":      result.Message,
		"payment_id":   result.PaymentID,
		"checkout_url": result.CheckoutURL,
		"tx_ref":       result.TxRef,
	})
}

// VerifyPayment re-checks a transaction with the gateway
// GET /api/payments/verify/{tx_ref}/
func (pc *PaymentController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, pc.UserCollection)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	txRef := mux.Vars(r)["tx_ref"]

	outcome, err := pc.Service.Verify(r.Context(), txRef, user)
	if err != nil {
		paymentError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "success",
		"payment":           outcome.Payment,
		"chapa_status":      outcome.ChapaStatus,
		"verification_data": outcome.Data,
	})
}

// Webhook handles Chapa webhook notifications. It must be reachable without
// authentication since the caller is the provider. The payload is never
// trusted directly: the service re-verifies with the gateway. A provider
// signature header is not validated here; re-verification is the trust
// boundary.
// POST /api/payments/webhook/
func (pc *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload chapa.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if payload.TxRef == "" {
		respondError(w, http.StatusBadRequest, "tx_ref is required")
		return
	}

	if _, err := pc.Service.HandleWebhook(r.Context(), payload); err != nil {
		paymentError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Webhook processed successfully",
	})
}

// ListPayments returns the current user's payments
// GET /api/payments/
func (pc *PaymentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, pc.UserCollection)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	list, err := pc.Service.ListPayments(r.Context(), user)
	if err != nil {
		paymentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetPayment returns a single payment, owner only
// GET /api/payments/{payment_id}/
func (pc *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, pc.UserCollection)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	paymentID := mux.Vars(r)["payment_id"]

	payment, err := pc.Service.GetPayment(r.Context(), paymentID, user)
	if err != nil {
		paymentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

// ListBanks returns the banks supported for bank-transfer payments
// GET /api/payments/banks/
func (pc *PaymentController) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := pc.Service.ListBanks(r.Context())
	if err != nil {
		paymentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, banks)
}
