// Package payments holds the payment initiation flow and the reconciliation
// core that keeps Payment, Booking and gateway transaction status consistent
// across its three entry points: initiation, client-driven verification and
// the provider webhook.
package payments

import (
	"context"
	"errors"

	"go-travelapp/chapa"
	"go-travelapp/models"
)

var (
	// ErrBookingNotFound is returned when the referenced booking does not exist
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPaymentNotFound is returned when no payment matches the given reference
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrForbidden is returned when the requester does not own the booking
	ErrForbidden = errors.New("you do not have permission to access this payment")
	// ErrAlreadyPaid is returned when the booking already has a completed payment
	ErrAlreadyPaid = errors.New("this booking has already been paid for")
	// ErrGateway wraps gateway communication failures
	ErrGateway = errors.New("payment gateway error")
)

// Gateway is the outbound surface of the payment provider client
type Gateway interface {
	Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.InitializeResult, error)
	Verify(ctx context.Context, txRef string) (*chapa.VerifyResult, error)
	HandleWebhook(ctx context.Context, payload chapa.WebhookPayload) (*chapa.VerifyResult, error)
	ListBanks(ctx context.Context) ([]chapa.Bank, error)
}

// PaymentStore persists payment attempts. The conditional Complete/Fail
// updates only match a pending payment, making a transition at-most-once
// even across processes.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	HasCompleted(ctx context.Context, bookingID string) (bool, error)
	CompletePending(ctx context.Context, txRef, transactionID string) (bool, error)
	FailPending(ctx context.Context, txRef string) (bool, error)
	ListByBookingIDs(ctx context.Context, bookingIDs []string) ([]models.Payment, error)
	EnsureMethod(ctx context.Context, name string) error
}

// BookingStore is the slice of booking persistence the payment flow needs
type BookingStore interface {
	GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID string) error
	ListIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// ListingStore resolves the listing a booking refers to
type ListingStore interface {
	GetByPropertyID(ctx context.Context, propertyID string) (*models.Listing, error)
}
