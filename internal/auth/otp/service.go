package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/mailer"
)

// ErrCodeInvalid covers both a wrong code and an expired or missing one;
// callers must not be able to tell the difference.
var ErrCodeInvalid = errors.New("otp: invalid or expired code")

// Pending is what a verified code unlocks. Signup requests carry the
// desired display name through to user creation.
type Pending struct {
	Signup bool    `json:"signup"`
	Name   *string `json:"name,omitempty"`
}

type stored struct {
	CodeHash string `json:"code_hash"`
	Pending
}

// Service issues and verifies one-time email codes. Only a bcrypt hash of
// the code is stored, so a leaked store entry does not leak the code.
type Service struct {
	store CodeStore
	mail  mailer.Mailer
	ttl   time.Duration
}

func NewService(store CodeStore, mail mailer.Mailer, ttl time.Duration) *Service {
	return &Service{store: store, mail: mail, ttl: ttl}
}

// Issue generates a code, persists its hash under the configured TTL and
// hands the plaintext code to the mailer. Reissuing overwrites any code
// still pending for the email.
func (s *Service) Issue(ctx context.Context, email string, p Pending) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("otp: failed to hash code: %w", err)
	}

	data, err := json.Marshal(stored{
		CodeHash: string(hash),
		Pending:  p,
	})
	if err != nil {
		return fmt.Errorf("otp: failed to marshal: %w", err)
	}

	if err := s.store.Put(ctx, keyFor(email), data, s.ttl); err != nil {
		return err
	}

	return s.mail.SendCode(ctx, email, code)
}

// Verify checks the code against the pending hash and consumes it on
// success. Codes are single-use.
func (s *Service) Verify(ctx context.Context, email, code string) (*Pending, error) {
	data, err := s.store.Get(ctx, keyFor(email))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrCodeInvalid
	}

	var rec stored
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("otp: failed to unmarshal: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		return nil, ErrCodeInvalid
	}

	if err := s.store.Delete(ctx, keyFor(email)); err != nil {
		return nil, err
	}

	return &rec.Pending, nil
}

func keyFor(email string) string {
	return strings.ToLower(email)
}

// generateCode returns a 6-digit decimal code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("otp: failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}
