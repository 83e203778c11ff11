package utils

import (
	"fmt"
	"os"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSender delivers a single email. Implementations must be safe for
// concurrent use; the notification worker calls them from its own goroutine.
type EmailSender interface {
	SendEmail(toEmail, subject, htmlContent string) error
}

// NewEmailSender returns the sender selected by EMAIL_PROVIDER
// ("postmark" or "sendgrid", defaulting to postmark).
func NewEmailSender() EmailSender {
	from := os.Getenv("EMAIL_SENDER")
	switch os.Getenv("EMAIL_PROVIDER") {
	case "sendgrid":
		apiKey := os.Getenv("SENDGRID_API_KEY")
		if apiKey == "" {
			panic("SENDGRID_API_KEY is not set in environment variables")
		}
		return &SendgridSender{apiKey: apiKey, from: from}
	default:
		apiToken := os.Getenv("POSTMARK_API_TOKEN")
		if apiToken == "" {
			panic("POSTMARK_API_TOKEN is not set in environment variables")
		}
		return &PostmarkSender{client: postmark.NewClient(apiToken, ""), from: from}
	}
}

// PostmarkSender sends emails through Postmark
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

// SendEmail sends a basic email to the specified recipient
func (ps *PostmarkSender) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := ps.client.SendEmail(postmark.Email{
		From:     ps.from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SendgridSender sends emails through SendGrid
type SendgridSender struct {
	apiKey string
	from   string
}

// SendEmail sends a basic email to the specified recipient
func (ss *SendgridSender) SendEmail(toEmail, subject, htmlContent string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("", ss.from),
		subject,
		mail.NewEmail("", toEmail),
		htmlContent,
		htmlContent,
	)
	response, err := sendgrid.NewSendClient(ss.apiKey).Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email: sendgrid returned %d", response.StatusCode)
	}
	return nil
}
