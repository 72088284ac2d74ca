// Package email delivers price alert notifications over SES as a secondary
// channel. Price drops are time-sensitive for shoppers who are not online,
// so they get an email on top of the in-app record.
package email

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/notification"
)

// SESService abstracts the SES client for testing.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// ContactStore looks up a user's email address in the platform user database.
type ContactStore interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Notifier is a best-effort side channel: it only reacts to price alerts
// and its errors never fail the job that triggered it.
type Notifier struct {
	ses       SESService
	contacts  ContactStore
	fromEmail string
	logger    logger.Logger
}

func NewNotifier(sesSvc SESService, contacts ContactStore, fromEmail string, log logger.Logger) *Notifier {
	return &Notifier{
		ses:       sesSvc,
		contacts:  contacts,
		fromEmail: fromEmail,
		logger:    log,
	}
}

const lookupEmailQuery = `SELECT email FROM users WHERE id = $1 AND email_notifications_enabled = true`

// Notify sends a price alert email to the recipient if they opted in.
// Non-price-alert notifications and opted-out users are silent no-ops.
func (n *Notifier) Notify(ctx context.Context, notif notification.Notification, message string) error {
	if notif.Type != notification.TypePriceAlert {
		return nil
	}

	var email string
	err := n.contacts.QueryRow(ctx, lookupEmailQuery, notif.RecipientID).Scan(&email)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("contact lookup for user %s: %w", notif.RecipientID, err)
	}

	subject := fmt.Sprintf("Price alert: %v", notif.Metadata["ingredientName"])
	body := fmt.Sprintf("%s\n\nOld price: %v\nNew price: %v\n", message,
		notif.Metadata["oldPrice"], notif.Metadata["newPrice"])

	_, err = n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to user %s: %w", notif.RecipientID, err)
	}

	n.logger.Debug("price alert email sent", map[string]interface{}{
		"recipientId":    notif.RecipientID,
		"notificationId": notif.ID,
	})
	return nil
}
