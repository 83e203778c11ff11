package payments

import (
	"context"
	"sync"
	"testing"

	"go-travelapp/chapa"
	"go-travelapp/models"
	"go-travelapp/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingPayment(txRef, bookingID string) *models.Payment {
	return &models.Payment{
		PaymentID:      "pay-1",
		BookingID:      bookingID,
		Amount:         500,
		Currency:       "ETB",
		ChapaReference: txRef,
		PaymentStatus:  models.PaymentPending,
		PaymentMethod:  "chapa",
	}
}

func pendingBooking(bookingID, userID string) *models.Booking {
	return &models.Booking{
		BookingID:  bookingID,
		PropertyID: "prop-1",
		UserID:     userID,
		StartDate:  "2026-09-01",
		EndDate:    "2026-09-06",
		TotalPrice: 500,
		Status:     models.BookingPending,
	}
}

func TestApplyUnknownTxRef(t *testing.T) {
	store := newFakePaymentStore()
	bookings := newFakeBookingStore()
	gateway := &fakeGateway{status: "success"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	_, err := r.Apply(context.Background(), "booking-unknown-deadbeef")
	require.ErrorIs(t, err, ErrPaymentNotFound)

	// No provider call, no notification.
	_, verifies := gateway.calls()
	assert.Equal(t, 0, verifies)
	assert.Empty(t, queue.messages)
}

func TestApplySuccessTransition(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "success", reference: "TRX123"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	out, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.Equal(t, "success", out.ChapaStatus)
	assert.Equal(t, models.PaymentCompleted, out.Payment.PaymentStatus)
	assert.Equal(t, "TRX123", out.Payment.TransactionID)
	assert.Equal(t, models.BookingConfirmed, bookings.status("B1"))
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentConfirmationEmail))
	assert.Equal(t, []string{"pay-1"}, queue.messages[0].Args)
}

func TestApplySuccessIsIdempotent(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "success", reference: "TRX123"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	first, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)
	require.True(t, first.Applied)

	// The same terminal status again: detectable no-op, no second email.
	second, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, models.PaymentCompleted, second.Payment.PaymentStatus)
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentConfirmationEmail))
	assert.Equal(t, models.BookingConfirmed, bookings.status("B1"))
}

func TestApplyReconvergesAfterConfirmFailure(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := &flakyBookingStore{
		fakeBookingStore: newFakeBookingStore(pendingBooking("B1", "U1")),
		confirmFailures:  1,
	}
	gateway := &fakeGateway{status: "success", reference: "TRX123"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	// The booking store fails once right after the payment transition.
	_, err := r.Apply(context.Background(), txRef)
	require.Error(t, err)

	p, err := store.GetByTxRef(context.Background(), txRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.PaymentStatus)
	assert.Equal(t, models.BookingPending, bookings.status("B1"))
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentConfirmationEmail))

	// The next trigger finds the payment completed and re-asserts the
	// booking confirmation without a second notification.
	out, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.BookingConfirmed, bookings.status("B1"))
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentConfirmationEmail))
}

func TestApplyFailedTransition(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "failed"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	out, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.Equal(t, models.PaymentFailed, out.Payment.PaymentStatus)
	// A failed payment never touches the booking.
	assert.Equal(t, models.BookingPending, bookings.status("B1"))
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentFailedEmail))
	assert.Equal(t, 0, queue.count(tasks.TaskPaymentConfirmationEmail))
}

func TestApplyFailedIsTerminal(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "failed"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	_, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)

	out, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentFailedEmail))
}

func TestApplyPendingIsNoOp(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "pending"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	out, err := r.Apply(context.Background(), txRef)
	require.NoError(t, err)

	assert.False(t, out.Applied)
	assert.Equal(t, models.PaymentPending, out.Payment.PaymentStatus)
	assert.Equal(t, models.BookingPending, bookings.status("B1"))
	assert.Empty(t, queue.messages)
}

func TestApplyGatewayErrorLeavesStateUntouched(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{verifyErr: assert.AnError}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	_, err := r.Apply(context.Background(), txRef)
	require.ErrorIs(t, err, ErrGateway)

	p, err := store.GetByTxRef(context.Background(), txRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.PaymentStatus)
	assert.Empty(t, queue.messages)
}

func TestApplyWebhookReVerifiesWithProvider(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	// The webhook claims success, but the provider reports failed; the
	// provider wins.
	gateway := &fakeGateway{status: "failed"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	out, err := r.ApplyWebhook(context.Background(), chapa.WebhookPayload{
		TxRef:  txRef,
		Status: "success",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.webhookCalls)
	assert.Equal(t, models.PaymentFailed, out.Payment.PaymentStatus)
	assert.Equal(t, models.BookingPending, bookings.status("B1"))
}

func TestApplyConcurrentTriggersEnqueueOnce(t *testing.T) {
	const txRef = "booking-B1-abcd1234"
	store := newFakePaymentStore(pendingPayment(txRef, "B1"))
	bookings := newFakeBookingStore(pendingBooking("B1", "U1"))
	gateway := &fakeGateway{status: "success", reference: "TRX123"}
	queue := &fakeQueue{}
	r := NewReconciler(store, bookings, gateway, queue)

	// A verify call and a webhook race for the same transaction.
	var wg sync.WaitGroup
	applied := make([]bool, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if out, err := r.Apply(context.Background(), txRef); err == nil {
			applied[0] = out.Applied
		}
	}()
	go func() {
		defer wg.Done()
		out, err := r.ApplyWebhook(context.Background(), chapa.WebhookPayload{TxRef: txRef, Status: "success"})
		if err == nil {
			applied[1] = out.Applied
		}
	}()
	wg.Wait()

	// Exactly one trigger wins the transition and exactly one email is queued.
	assert.NotEqual(t, applied[0], applied[1])
	assert.Equal(t, 1, queue.count(tasks.TaskPaymentConfirmationEmail))
	assert.Equal(t, models.BookingConfirmed, bookings.status("B1"))
}
