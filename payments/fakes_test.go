package payments

import (
	"context"
	"errors"
	"sync"

	"go-travelapp/chapa"
	"go-travelapp/models"
	"go-travelapp/tasks"
)

type fakePaymentStore struct {
	mu      sync.Mutex
	byRef   map[string]*models.Payment
	methods map[string]int
}

func newFakePaymentStore(ps ...*models.Payment) *fakePaymentStore {
	s := &fakePaymentStore{
		byRef:   make(map[string]*models.Payment),
		methods: make(map[string]int),
	}
	for _, p := range ps {
		cp := *p
		s.byRef[p.ChapaReference] = &cp
	}
	return s
}

func (s *fakePaymentStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byRef[p.ChapaReference]; ok {
		return errors.New("duplicate chapa_reference")
	}
	cp := *p
	s.byRef[p.ChapaReference] = &cp
	return nil
}

func (s *fakePaymentStore) GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[txRef]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePaymentStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byRef {
		if p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (s *fakePaymentStore) HasCompleted(ctx context.Context, bookingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byRef {
		if p.BookingID == bookingID && p.PaymentStatus == models.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePaymentStore) CompletePending(ctx context.Context, txRef, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[txRef]
	if !ok || p.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	p.PaymentStatus = models.PaymentCompleted
	p.TransactionID = transactionID
	return true, nil
}

func (s *fakePaymentStore) FailPending(ctx context.Context, txRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[txRef]
	if !ok || p.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	p.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (s *fakePaymentStore) ListByBookingIDs(ctx context.Context, bookingIDs []string) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.byRef {
		for _, id := range bookingIDs {
			if p.BookingID == id {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (s *fakePaymentStore) EnsureMethod(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[name]++
	return nil
}

func (s *fakePaymentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byRef)
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingStore(bs ...*models.Booking) *fakeBookingStore {
	s := &fakeBookingStore{bookings: make(map[string]*models.Booking)}
	for _, b := range bs {
		cp := *b
		s.bookings[b.BookingID] = &cp
	}
	return s
}

func (s *fakeBookingStore) GetByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBookingStore) Confirm(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = models.BookingConfirmed
	return nil
}

func (s *fakeBookingStore) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, b := range s.bookings {
		if b.UserID == userID {
			ids = append(ids, b.BookingID)
		}
	}
	return ids, nil
}

func (s *fakeBookingStore) status(bookingID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[bookingID].Status
}

// flakyBookingStore fails the first confirmFailures Confirm calls, simulating
// a transient store failure between the payment and booking updates.
type flakyBookingStore struct {
	*fakeBookingStore
	confirmFailures int
}

func (s *flakyBookingStore) Confirm(ctx context.Context, bookingID string) error {
	if s.confirmFailures > 0 {
		s.confirmFailures--
		return errors.New("bookings store unavailable")
	}
	return s.fakeBookingStore.Confirm(ctx, bookingID)
}

type fakeListingStore struct {
	listings map[string]*models.Listing
}

func newFakeListingStore(ls ...*models.Listing) *fakeListingStore {
	s := &fakeListingStore{listings: make(map[string]*models.Listing)}
	for _, l := range ls {
		cp := *l
		s.listings[l.PropertyID] = &cp
	}
	return s
}

func (s *fakeListingStore) GetByPropertyID(ctx context.Context, propertyID string) (*models.Listing, error) {
	l, ok := s.listings[propertyID]
	if !ok {
		return nil, errors.New("listing not found")
	}
	cp := *l
	return &cp, nil
}

// fakeGateway scripts gateway responses and counts outbound calls so tests
// can assert that no provider call happens on authorization failures.
type fakeGateway struct {
	mu           sync.Mutex
	initCalls    int
	verifyCalls  int
	webhookCalls int

	initErr     error
	verifyErr   error
	status      string
	reference   string
	checkoutURL string
	lastInit    chapa.InitializeRequest
}

func (g *fakeGateway) Initialize(ctx context.Context, req chapa.InitializeRequest) (*chapa.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	g.lastInit = req
	if g.initErr != nil {
		return nil, g.initErr
	}
	url := g.checkoutURL
	if url == "" {
		url = "https://checkout.chapa.co/checkout/test"
	}
	return &chapa.InitializeResult{TxRef: req.TxRef, CheckoutURL: url, Message: "Hosted Link"}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, txRef string) (*chapa.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &chapa.VerifyResult{
		Message: "Payment details",
		Data: chapa.VerifyData{
			Status:    g.status,
			Reference: g.reference,
			TxRef:     txRef,
		},
	}, nil
}

func (g *fakeGateway) HandleWebhook(ctx context.Context, payload chapa.WebhookPayload) (*chapa.VerifyResult, error) {
	g.mu.Lock()
	g.webhookCalls++
	g.mu.Unlock()
	if payload.TxRef == "" {
		return nil, errors.New("webhook payload missing tx_ref")
	}
	return g.Verify(ctx, payload.TxRef)
}

func (g *fakeGateway) ListBanks(ctx context.Context) ([]chapa.Bank, error) {
	return []chapa.Bank{{ID: "1", Name: "Awash Bank", Currency: "ETB"}}, nil
}

func (g *fakeGateway) calls() (init, verify int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initCalls, g.verifyCalls
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []tasks.Message
}

func (q *fakeQueue) Enqueue(ctx context.Context, task string, args ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, tasks.Message{Task: task, Args: args})
	return nil
}

func (q *fakeQueue) count(task string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, m := range q.messages {
		if m.Task == task {
			n++
		}
	}
	return n
}
