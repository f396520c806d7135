package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *memStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[key], nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

type captureMailer struct {
	to   string
	code string
	err  error
}

func (c *captureMailer) SendCode(ctx context.Context, to, code string) error {
	c.to = to
	c.code = code
	return c.err
}

func TestIssueAndVerify(t *testing.T) {
	store := newMemStore()
	mail := &captureMailer{}
	svc := NewService(store, mail, 10*time.Minute)
	ctx := context.Background()

	name := "Joaquin"
	require.NoError(t, svc.Issue(ctx, "A@x.com", Pending{Signup: true, Name: &name}))

	assert.Equal(t, "A@x.com", mail.to)
	assert.Len(t, mail.code, 6)
	assert.Equal(t, 10*time.Minute, store.ttls["a@x.com"], "keys are lowercased email")

	pending, err := svc.Verify(ctx, "a@x.com", mail.code)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.True(t, pending.Signup)
	require.NotNil(t, pending.Name)
	assert.Equal(t, "Joaquin", *pending.Name)
}

func TestIssue_StoresHashNotCode(t *testing.T) {
	store := newMemStore()
	mail := &captureMailer{}
	svc := NewService(store, mail, time.Minute)

	require.NoError(t, svc.Issue(context.Background(), "a@x.com", Pending{}))

	raw := string(store.entries["a@x.com"])
	assert.NotContains(t, raw, mail.code, "plaintext code must not hit the store")
	assert.Contains(t, raw, "$2a$", "stored value carries a bcrypt hash")
}

func TestVerify_WrongCode(t *testing.T) {
	store := newMemStore()
	mail := &captureMailer{}
	svc := NewService(store, mail, time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@x.com", Pending{}))

	wrong := "000000"
	if mail.code == wrong {
		wrong = "000001"
	}

	_, err := svc.Verify(ctx, "a@x.com", wrong)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// the pending code survives a failed attempt
	_, err = svc.Verify(ctx, "a@x.com", mail.code)
	assert.NoError(t, err)
}

func TestVerify_SingleUse(t *testing.T) {
	store := newMemStore()
	mail := &captureMailer{}
	svc := NewService(store, mail, time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@x.com", Pending{}))

	_, err := svc.Verify(ctx, "a@x.com", mail.code)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "a@x.com", mail.code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerify_NothingPending(t *testing.T) {
	svc := NewService(newMemStore(), &captureMailer{}, time.Minute)

	_, err := svc.Verify(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerify_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	svc := NewService(store, &captureMailer{}, time.Minute)

	_, err := svc.Verify(context.Background(), "a@x.com", "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeInvalid, "store failures are not code failures")
}

func TestGeneratedCodesAreDigits(t *testing.T) {
	store := newMemStore()
	mail := &captureMailer{}
	svc := NewService(store, mail, time.Minute)

	for range 20 {
		require.NoError(t, svc.Issue(context.Background(), "a@x.com", Pending{}))
		require.Len(t, mail.code, 6)
		assert.Equal(t, "", strings.Trim(mail.code, "0123456789"))
	}
}
