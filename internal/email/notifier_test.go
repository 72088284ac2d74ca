// internal/email/notifier_test.go
package email

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/notification"
)

// ==========================
// Mocks
// ==========================

type mockSES struct {
	sendEmailFunc func(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         []*ses.SendEmailInput
}

func (m *mockSES) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, input)
	if m.sendEmailFunc != nil {
		return m.sendEmailFunc(ctx, input, optFns...)
	}
	return &ses.SendEmailOutput{}, nil
}

type sqlContacts struct {
	db *sql.DB
}

func (c *sqlContacts) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func newTestNotifier(t *testing.T, sesMock *mockSES) (*Notifier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := NewNotifier(sesMock, &sqlContacts{db: db}, "alerts@recipehub.example", logger.NewTestLogger(t))
	return n, mock
}

func priceAlertNotification() notification.Notification {
	return notification.Notification{
		ID:          "n-1",
		JobID:       "job-1",
		Type:        notification.TypePriceAlert,
		RecipientID: "u-1",
		Metadata: map[string]any{
			"ingredientName": "Eggs",
			"oldPrice":       4.0,
			"newPrice":       3.0,
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestNotifier_SendsPriceAlertEmail(t *testing.T) {
	sesMock := &mockSES{}
	n, mock := newTestNotifier(t, sesMock)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("cook@example.com"))

	err := n.Notify(context.Background(), priceAlertNotification(),
		"Price alert for Eggs: -25% change at Market")
	require.NoError(t, err)

	require.Len(t, sesMock.calls, 1)
	input := sesMock.calls[0]
	assert.Equal(t, "alerts@recipehub.example", *input.Source)
	assert.Equal(t, []string{"cook@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Subject.Data, "Eggs")
	assert.Contains(t, *input.Message.Body.Text.Data, "Price alert for Eggs")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier_IgnoresOtherNotificationTypes(t *testing.T) {
	sesMock := &mockSES{}
	n, mock := newTestNotifier(t, sesMock)

	notif := priceAlertNotification()
	notif.Type = notification.TypeRecipeLiked

	err := n.Notify(context.Background(), notif, "Maria liked your recipe")
	require.NoError(t, err)
	assert.Empty(t, sesMock.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier_OptedOutUserIsNoOp(t *testing.T) {
	sesMock := &mockSES{}
	n, mock := newTestNotifier(t, sesMock)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs("u-1").
		WillReturnError(sql.ErrNoRows)

	err := n.Notify(context.Background(), priceAlertNotification(), "msg")
	require.NoError(t, err)
	assert.Empty(t, sesMock.calls)
}

func TestNotifier_LookupErrorIsReturned(t *testing.T) {
	sesMock := &mockSES{}
	n, mock := newTestNotifier(t, sesMock)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs("u-1").
		WillReturnError(errors.New("connection refused"))

	err := n.Notify(context.Background(), priceAlertNotification(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact lookup")
	assert.Empty(t, sesMock.calls)
}

func TestNotifier_SESErrorIsReturned(t *testing.T) {
	sesMock := &mockSES{
		sendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	n, mock := newTestNotifier(t, sesMock)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("cook@example.com"))

	err := n.Notify(context.Background(), priceAlertNotification(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ses send")
}
