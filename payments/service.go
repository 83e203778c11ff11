package payments

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go-travelapp/chapa"
	"go-travelapp/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is the only currency the gateway integration supports
const Currency = "ETB"

// InitiateResult is returned to the client after a successful initiation
type InitiateResult struct {
	PaymentID   string `json:"payment_id"`
	TxRef       string `json:"tx_ref"`
	CheckoutURL string `json:"checkout_url"`
	Message     string `json:"message"`
}

// Service orchestrates payment initiation, authorization checks and
// user-scoped payment reads. Status transitions are delegated to the
// Reconciler.
type Service struct {
	payments    PaymentStore
	bookings    BookingStore
	listings    ListingStore
	gateway     Gateway
	reconciler  *Reconciler
	frontendURL string
}

// NewService creates a payment service
func NewService(payments PaymentStore, bookings BookingStore, listings ListingStore, gateway Gateway, reconciler *Reconciler, frontendURL string) *Service {
	return &Service{
		payments:    payments,
		bookings:    bookings,
		listings:    listings,
		gateway:     gateway,
		reconciler:  reconciler,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// newTxRef builds the idempotent transaction reference shared with the
// gateway: booking-<booking_id>-<8 random hex chars>.
func newTxRef(bookingID string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("booking-%s-%s", bookingID, random)
}

// Initiate creates exactly one new pending Payment for the booking after a
// successful gateway initialization. Rejected without any gateway call when
// the requester does not own the booking or a completed payment already
// exists.
func (s *Service) Initiate(ctx context.Context, bookingID string, user *models.User, callbackURL string) (*InitiateResult, error) {
	booking, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.UserID {
		return nil, ErrForbidden
	}

	paid, err := s.payments.HasCompleted(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	listing, err := s.listings.GetByPropertyID(ctx, booking.PropertyID)
	if err != nil {
		return nil, err
	}

	txRef := newTxRef(bookingID)
	amount := decimal.NewFromFloat(booking.TotalPrice)

	result, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      amount.StringFixed(2),
		Currency:    Currency,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		TxRef:       txRef,
		CallbackURL: callbackURL,
		ReturnURL:   fmt.Sprintf("%s/bookings/%s/payment-success", s.frontendURL, bookingID),
		Customization: chapa.Customization{
			Title:       fmt.Sprintf("Booking Payment - %s", listing.Name),
			Description: fmt.Sprintf("Payment for booking from %s to %s", booking.StartDate, booking.EndDate),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	// The "chapa" method descriptor is created lazily on first use.
	if err := s.payments.EnsureMethod(ctx, "chapa"); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		PaymentID:         uuid.NewString(),
		BookingID:         bookingID,
		Amount:            booking.TotalPrice,
		Currency:          Currency,
		ChapaReference:    txRef,
		PaymentStatus:     models.PaymentPending,
		PaymentMethod:     "chapa",
		CustomerEmail:     user.Email,
		CustomerFirstName: user.FirstName,
		CustomerLastName:  user.LastName,
		CustomerPhone:     user.PhoneNumber,
		PaymentDate:       time.Now(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("[payments] payment initiated: %s (tx_ref=%s)", payment.PaymentID, txRef)

	return &InitiateResult{
		PaymentID:   payment.PaymentID,
		TxRef:       txRef,
		CheckoutURL: result.CheckoutURL,
		Message:     "Payment initialized successfully",
	}, nil
}

// Verify re-checks a transaction with the gateway and applies any resulting
// transition. The requester must own the booking; on mismatch no provider
// call is made.
func (s *Service) Verify(ctx context.Context, txRef string, user *models.User) (*Outcome, error) {
	payment, err := s.payments.GetByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetByBookingID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.UserID {
		return nil, ErrForbidden
	}

	return s.reconciler.Apply(ctx, txRef)
}

// HandleWebhook applies a provider-initiated notification. There is no
// requester to authorize; the trust boundary is the tx_ref lookup plus the
// re-verification inside the gateway client.
func (s *Service) HandleWebhook(ctx context.Context, payload chapa.WebhookPayload) (*Outcome, error) {
	return s.reconciler.ApplyWebhook(ctx, payload)
}

// GetPayment returns one payment, owner only
func (s *Service) GetPayment(ctx context.Context, paymentID string, user *models.User) (*models.Payment, error) {
	payment, err := s.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetByBookingID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != user.UserID {
		return nil, ErrForbidden
	}
	return payment, nil
}

// ListPayments returns all payments for the requesting user's own bookings
func (s *Service) ListPayments(ctx context.Context, user *models.User) ([]models.Payment, error) {
	bookingIDs, err := s.bookings.ListIDsByUser(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if len(bookingIDs) == 0 {
		return []models.Payment{}, nil
	}
	return s.payments.ListByBookingIDs(ctx, bookingIDs)
}

// ListBanks proxies the gateway's supported-banks listing
func (s *Service) ListBanks(ctx context.Context) ([]chapa.Bank, error) {
	banks, err := s.gateway.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return banks, nil
}
