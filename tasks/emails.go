package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-travelapp/models"
	"go-travelapp/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Notifier executes the notification tasks: it loads the referenced records
// and sends the rendered email through the configured sender.
type Notifier struct {
	payments *mongo.Collection
	bookings *mongo.Collection
	listings *mongo.Collection
	users    *mongo.Collection
	sender   utils.EmailSender
}

// NewNotifier creates a Notifier over the application database
func NewNotifier(db *mongo.Database, sender utils.EmailSender) *Notifier {
	return &Notifier{
		payments: db.Collection("payments"),
		bookings: db.Collection("bookings"),
		listings: db.Collection("listings"),
		users:    db.Collection("users"),
		sender:   sender,
	}
}

// Register installs the notification handlers on a worker
func (n *Notifier) Register(w *Worker) {
	w.Handle(TaskPaymentConfirmationEmail, n.SendPaymentConfirmationEmail)
	w.Handle(TaskPaymentFailedEmail, n.SendPaymentFailedEmail)
	w.Handle(TaskBookingConfirmationEmail, n.SendBookingConfirmationEmail)
}

// SendPaymentConfirmationEmail sends a payment confirmation to the booking's user
func (n *Notifier) SendPaymentConfirmationEmail(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("payment_id argument missing")
	}

	payment, booking, user, err := n.loadPayment(ctx, args[0])
	if err != nil {
		return err
	}
	var listing models.Listing
	if err := n.listings.FindOne(ctx, bson.M{"property_id": booking.PropertyID}).Decode(&listing); err != nil {
		return fmt.Errorf("listing %s: %w", booking.PropertyID, err)
	}

	subject, body := paymentConfirmationEmail(payment, booking, &listing, user)
	if err := n.sender.SendEmail(user.Email, subject, body); err != nil {
		return err
	}
	log.Printf("[tasks] payment confirmation email sent to %s", user.Email)
	return nil
}

// SendPaymentFailedEmail notifies the booking's user that a payment failed
func (n *Notifier) SendPaymentFailedEmail(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("payment_id argument missing")
	}

	payment, booking, user, err := n.loadPayment(ctx, args[0])
	if err != nil {
		return err
	}

	subject, body := paymentFailedEmail(payment, booking, user)
	if err := n.sender.SendEmail(user.Email, subject, body); err != nil {
		return err
	}
	log.Printf("[tasks] payment failed email sent to %s", user.Email)
	return nil
}

// SendBookingConfirmationEmail sends booking details, including host contact
// information, to the booking's user
func (n *Notifier) SendBookingConfirmationEmail(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("booking_id argument missing")
	}

	var booking models.Booking
	if err := n.bookings.FindOne(ctx, bson.M{"booking_id": args[0]}).Decode(&booking); err != nil {
		return fmt.Errorf("booking %s: %w", args[0], err)
	}
	var listing models.Listing
	if err := n.listings.FindOne(ctx, bson.M{"property_id": booking.PropertyID}).Decode(&listing); err != nil {
		return fmt.Errorf("listing %s: %w", booking.PropertyID, err)
	}
	var user models.User
	if err := n.users.FindOne(ctx, bson.M{"user_id": booking.UserID}).Decode(&user); err != nil {
		return fmt.Errorf("user %s: %w", booking.UserID, err)
	}
	var host models.User
	if err := n.users.FindOne(ctx, bson.M{"user_id": listing.HostID}).Decode(&host); err != nil {
		return fmt.Errorf("host %s: %w", listing.HostID, err)
	}

	subject, body := bookingConfirmationEmail(&booking, &listing, &user, &host)
	if err := n.sender.SendEmail(user.Email, subject, body); err != nil {
		return err
	}
	log.Printf("[tasks] booking confirmation email sent to %s", user.Email)
	return nil
}

func (n *Notifier) loadPayment(ctx context.Context, paymentID string) (*models.Payment, *models.Booking, *models.User, error) {
	var payment models.Payment
	if err := n.payments.FindOne(ctx, bson.M{"payment_id": paymentID}).Decode(&payment); err != nil {
		return nil, nil, nil, fmt.Errorf("payment %s: %w", paymentID, err)
	}
	var booking models.Booking
	if err := n.bookings.FindOne(ctx, bson.M{"booking_id": payment.BookingID}).Decode(&booking); err != nil {
		return nil, nil, nil, fmt.Errorf("booking %s: %w", payment.BookingID, err)
	}
	var user models.User
	if err := n.users.FindOne(ctx, bson.M{"user_id": booking.UserID}).Decode(&user); err != nil {
		return nil, nil, nil, fmt.Errorf("user %s: %w", booking.UserID, err)
	}
	return &payment, &booking, &user, nil
}

// nights returns the booking duration in nights, or 0 if the dates are malformed
func nights(b *models.Booking) int {
	start, err1 := time.Parse("2006-01-02", b.StartDate)
	end, err2 := time.Parse("2006-01-02", b.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}

func paymentConfirmationEmail(p *models.Payment, b *models.Booking, l *models.Listing, u *models.User) (subject, html string) {
	subject = fmt.Sprintf("Payment Confirmation - Booking #%s", b.BookingID)
	html = fmt.Sprintf(`<html>
<body>
    <h2>Payment Confirmed!</h2>
    <p>Dear %s %s,</p>
    <p>Your payment has been successfully processed.</p>

    <h3>Booking Details:</h3>
    <ul>
        <li><strong>Property:</strong> %s</li>
        <li><strong>Location:</strong> %s</li>
        <li><strong>Check-in:</strong> %s</li>
        <li><strong>Check-out:</strong> %s</li>
        <li><strong>Duration:</strong> %d nights</li>
    </ul>

    <h3>Payment Details:</h3>
    <ul>
        <li><strong>Amount Paid:</strong> %s %.2f</li>
        <li><strong>Transaction ID:</strong> %s</li>
        <li><strong>Payment Date:</strong> %s</li>
    </ul>

    <p>Thank you for choosing our service!</p>
    <p>Best regards,<br>The Travel Team</p>
</body>
</html>`,
		u.FirstName, u.LastName,
		l.Name, l.Location,
		b.StartDate, b.EndDate, nights(b),
		p.Currency, p.Amount, p.TransactionID,
		p.PaymentDate.Format("2006-01-02 15:04"),
	)
	return subject, html
}

func paymentFailedEmail(p *models.Payment, b *models.Booking, u *models.User) (subject, html string) {
	subject = "Payment Failed - Action Required"
	html = fmt.Sprintf(`<html>
<body>
    <h2>Payment Failed</h2>
    <p>Dear %s %s,</p>
    <p>Unfortunately, your payment could not be processed.</p>

    <p><strong>Booking Reference:</strong> %s</p>
    <p><strong>Amount:</strong> %s %.2f</p>

    <p>Please try again or contact our support team for assistance.</p>

    <p>Best regards,<br>The Travel Team</p>
</body>
</html>`,
		u.FirstName, u.LastName,
		b.BookingID,
		p.Currency, p.Amount,
	)
	return subject, html
}

func bookingConfirmationEmail(b *models.Booking, l *models.Listing, u, host *models.User) (subject, html string) {
	subject = fmt.Sprintf("Booking Confirmed - %s", l.Name)
	phone := host.PhoneNumber
	if phone == "" {
		phone = "N/A"
	}
	html = fmt.Sprintf(`<html>
<body>
    <h2>Booking Confirmed!</h2>
    <p>Dear %s %s,</p>
    <p>Your booking has been confirmed.</p>

    <h3>Booking Details:</h3>
    <ul>
        <li><strong>Property:</strong> %s</li>
        <li><strong>Location:</strong> %s</li>
        <li><strong>Check-in:</strong> %s</li>
        <li><strong>Check-out:</strong> %s</li>
        <li><strong>Total Price:</strong> ETB %.2f</li>
    </ul>

    <h3>Host Information:</h3>
    <ul>
        <li><strong>Name:</strong> %s %s</li>
        <li><strong>Email:</strong> %s</li>
        <li><strong>Phone:</strong> %s</li>
    </ul>

    <p>We hope you have a wonderful stay!</p>
    <p>Best regards,<br>The Travel Team</p>
</body>
</html>`,
		u.FirstName, u.LastName,
		l.Name, l.Location,
		b.StartDate, b.EndDate, b.TotalPrice,
		host.FirstName, host.LastName, host.Email, phone,
	)
	return subject, html
}
