package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrz1836/postmark"
)

// Mailer delivers verification codes. Delivery is delegated entirely to
// the implementation; the auth flow never composes more than a one-line
// message.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
}

// Postmark sends codes through Postmark's transactional API.
type Postmark struct {
	client *postmark.Client
	from   string
}

func NewPostmark(serverToken, accountToken, from string) (*Postmark, error) {
	if serverToken == "" || from == "" {
		return nil, errors.New("mailer: postmark server token and sender address are required")
	}

	return &Postmark{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

func (m *Postmark) SendCode(ctx context.Context, to, code string) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.from,
		To:       to,
		Subject:  "Your QuickQuiz sign-in code",
		TextBody: fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code),
		Tag:      "otp",
	})
	if err != nil {
		return fmt.Errorf("mailer: postmark send failed: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("mailer: postmark error %d: %s", resp.ErrorCode, resp.Message)
	}

	return nil
}

// Log writes codes to the log instead of sending email. Local
// development only; it defeats the point of email verification.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (m *Log) SendCode(ctx context.Context, to, code string) error {
	m.log.Info("verification code issued (dev mailer)",
		"email", to,
		"code", code,
	)
	return nil
}
