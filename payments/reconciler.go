package payments

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go-travelapp/chapa"
	"go-travelapp/models"
	"go-travelapp/tasks"
)

// Outcome reports what a reconciliation pass did for one transaction.
// Applied is false when the payment was already in a terminal state or a
// concurrent trigger won the transition — a detectable no-op, never an error.
type Outcome struct {
	Payment     *models.Payment  `json:"payment"`
	ChapaStatus string           `json:"chapa_status"`
	Data        chapa.VerifyData `json:"verification_data"`
	Applied     bool             `json:"-"`
}

// Reconciler applies the payment state machine: pending -> {completed,
// failed}, both terminal. It converges Payment and Booking state with the
// provider's authoritative transaction status and enqueues each notification
// exactly once per transition.
type Reconciler struct {
	payments PaymentStore
	bookings BookingStore
	gateway  Gateway
	queue    tasks.Queue

	mu    sync.Mutex
	locks map[string]*txLock
}

type txLock struct {
	mu   sync.Mutex
	refs int
}

// NewReconciler creates a reconciler over the given stores, gateway and queue
func NewReconciler(payments PaymentStore, bookings BookingStore, gateway Gateway, queue tasks.Queue) *Reconciler {
	return &Reconciler{
		payments: payments,
		bookings: bookings,
		gateway:  gateway,
		queue:    queue,
		locks:    make(map[string]*txLock),
	}
}

// lock serializes reconciliation per transaction reference so concurrent
// verify and webhook triggers for the same tx_ref cannot interleave.
func (r *Reconciler) lock(txRef string) (unlock func()) {
	r.mu.Lock()
	l := r.locks[txRef]
	if l == nil {
		l = &txLock{}
		r.locks[txRef] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, txRef)
		}
		r.mu.Unlock()
	}
}

// Apply re-verifies the transaction with the provider and applies the
// transition rules. Driven by the client-initiated verify endpoint.
func (r *Reconciler) Apply(ctx context.Context, txRef string) (*Outcome, error) {
	return r.apply(ctx, txRef, func(ctx context.Context) (*chapa.VerifyResult, error) {
		return r.gateway.Verify(ctx, txRef)
	})
}

// ApplyWebhook applies the transition rules for an inbound webhook
// notification. The payload's own status is ignored; the gateway client
// re-verifies with the provider before anything is trusted.
func (r *Reconciler) ApplyWebhook(ctx context.Context, payload chapa.WebhookPayload) (*Outcome, error) {
	return r.apply(ctx, payload.TxRef, func(ctx context.Context) (*chapa.VerifyResult, error) {
		return r.gateway.HandleWebhook(ctx, payload)
	})
}

func (r *Reconciler) apply(ctx context.Context, txRef string, verify func(context.Context) (*chapa.VerifyResult, error)) (*Outcome, error) {
	unlock := r.lock(txRef)
	defer unlock()

	payment, err := r.payments.GetByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}

	result, err := verify(ctx)
	if err != nil {
		// Payment state is untouched; the caller may retry later.
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	status := chapa.NormalizeStatus(result.Data.Status)
	out := &Outcome{Payment: payment, ChapaStatus: status, Data: result.Data}

	switch status {
	case chapa.StatusSuccess:
		if payment.PaymentStatus == models.PaymentCompleted {
			// Already converged. Re-assert the booking confirmation in
			// case an earlier pass completed the payment but failed
			// before confirming; only the notification stays
			// de-duplicated.
			if err := r.bookings.Confirm(ctx, payment.BookingID); err != nil {
				return nil, err
			}
			return out, nil
		}
		applied, err := r.payments.CompletePending(ctx, txRef, result.Data.Reference)
		if err != nil {
			return nil, err
		}
		if applied {
			// The notification is tied to winning the conditional
			// update, so it goes out exactly once even if the booking
			// confirmation below fails and a later trigger reconverges.
			r.enqueue(ctx, tasks.TaskPaymentConfirmationEmail, payment.PaymentID)
			if err := r.bookings.Confirm(ctx, payment.BookingID); err != nil {
				return nil, err
			}
			payment.PaymentStatus = models.PaymentCompleted
			payment.TransactionID = result.Data.Reference
			log.Printf("[payments] payment completed: %s", payment.PaymentID)
		} else {
			// A concurrent trigger performed the transition first.
			r.refresh(ctx, txRef, out)
		}
		out.Applied = applied

	case chapa.StatusFailed:
		if payment.PaymentStatus != models.PaymentPending {
			return out, nil
		}
		applied, err := r.payments.FailPending(ctx, txRef)
		if err != nil {
			return nil, err
		}
		if applied {
			// Booking status is deliberately left untouched.
			r.enqueue(ctx, tasks.TaskPaymentFailedEmail, payment.PaymentID)
			payment.PaymentStatus = models.PaymentFailed
			log.Printf("[payments] payment failed: %s", payment.PaymentID)
		} else {
			r.refresh(ctx, txRef, out)
		}
		out.Applied = applied

	default:
		// Still pending (or an unknown status): no mutation, no
		// notification. The caller may re-poll.
	}

	return out, nil
}

func (r *Reconciler) enqueue(ctx context.Context, task, paymentID string) {
	if err := r.queue.Enqueue(ctx, task, paymentID); err != nil {
		log.Printf("[payments] failed to enqueue %s for %s: %v", task, paymentID, err)
	}
}

func (r *Reconciler) refresh(ctx context.Context, txRef string, out *Outcome) {
	if fresh, err := r.payments.GetByTxRef(ctx, txRef); err == nil {
		out.Payment = fresh
	}
}
