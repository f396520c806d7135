package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/handler"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/provider"
	"github.com/joaquinllenado/quickquiz-backend/internal/middleware"
	"github.com/joaquinllenado/quickquiz-backend/internal/session"
	"github.com/joaquinllenado/quickquiz-backend/internal/users"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type fakeUsers struct {
	byEmail map[string]*users.User
	nextID  string
	created *users.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*users.User{}, nextID: "u1"}
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return f.byEmail[strings.ToLower(email)], nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*users.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(ctx context.Context, email string, name *string) (*users.User, error) {
	u := &users.User{ID: f.nextID, Email: email, Name: name, EmailVerified: true}
	f.byEmail[strings.ToLower(email)] = u
	f.created = u
	return u, nil
}

type fakeCodes struct {
	issued      map[string]otp.Pending
	verified    *otp.Pending
	verifyErr   error
	lastCode    string
	issueCalled bool
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{issued: map[string]otp.Pending{}}
}

func (f *fakeCodes) Issue(ctx context.Context, email string, p otp.Pending) error {
	f.issueCalled = true
	f.issued[strings.ToLower(email)] = p
	return nil
}

func (f *fakeCodes) Verify(ctx context.Context, email, code string) (*otp.Pending, error) {
	f.lastCode = code
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verified, nil
}

type fakeSessions struct {
	sessions map[string]*session.Session
	deleted  []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*session.Session{}}
}

func (f *fakeSessions) Create(ctx context.Context, s session.Session) error {
	f.sessions[s.Token] = &s
	return nil
}

func (f *fakeSessions) Lookup(ctx context.Context, token string) (*session.Session, error) {
	return f.sessions[token], nil
}

func (f *fakeSessions) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	delete(f.sessions, token)
	return nil
}

type env struct {
	router   *gin.Engine
	users    *fakeUsers
	codes    *fakeCodes
	sessions *fakeSessions
}

func newEnv() *env {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &env{
		users:    newFakeUsers(),
		codes:    newFakeCodes(),
		sessions: newFakeSessions(),
	}

	h := handler.New(handler.Deps{
		Providers:     provider.NewRegistry(),
		Sessions:      e.sessions,
		Users:         e.users,
		Codes:         e.codes,
		Log:           log,
		SessionTTL:    time.Hour,
		SecureCookies: true,
	})

	e.router = gin.New()
	h.RegisterRoutes(e.router, middleware.NewAuthMiddleware(e.sessions, log))
	return e
}

func (e *env) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	e := newEnv()

	w := e.post(t, "/auth/signup", `{"email":"new@x.com","name":"Joaquin"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"message":"Verification email sent. Please check your inbox.","email":"new@x.com"}`,
		w.Body.String(),
	)

	pending, ok := e.codes.issued["new@x.com"]
	require.True(t, ok, "a code must be issued")
	assert.True(t, pending.Signup)
	require.NotNil(t, pending.Name)
	assert.Equal(t, "Joaquin", *pending.Name)
}

func TestSignup_ExistingUser(t *testing.T) {
	e := newEnv()
	e.users.byEmail["taken@x.com"] = &users.User{ID: "u9", Email: "taken@x.com"}

	w := e.post(t, "/auth/signup", `{"email":"taken@x.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"User with this email already exists"}`, w.Body.String())
	assert.False(t, e.codes.issueCalled)
}

func TestSignup_InvalidInput(t *testing.T) {
	e := newEnv()

	for name, body := range map[string]string{
		"missing email": `{"name":"x"}`,
		"bad email":     `{"email":"not-an-email"}`,
		"not json":      `email=a@x.com`,
	} {
		t.Run(name, func(t *testing.T) {
			w := e.post(t, "/auth/signup", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid input"}`, w.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv()
	e.users.byEmail["a@x.com"] = &users.User{ID: "u1", Email: "a@x.com"}

	w := e.post(t, "/auth/login", `{"email":"a@x.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"message":"Login email sent. Please check your inbox.","email":"a@x.com"}`,
		w.Body.String(),
	)

	pending, ok := e.codes.issued["a@x.com"]
	require.True(t, ok)
	assert.False(t, pending.Signup)
}

func TestLogin_UnknownUser(t *testing.T) {
	e := newEnv()

	w := e.post(t, "/auth/login", `{"email":"ghost@x.com"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"User not found. Please sign up first."}`, w.Body.String())
	assert.False(t, e.codes.issueCalled)
}

func TestVerify_SignupCreatesUserAndSession(t *testing.T) {
	e := newEnv()
	name := "Joaquin"
	e.codes.verified = &otp.Pending{Signup: true, Name: &name}

	w := e.post(t, "/auth/verify", `{"email":"new@x.com","code":"123456"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, e.users.created)
	assert.Equal(t, "new@x.com", e.users.created.Email)

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	_, ok := e.sessions.sessions[cookie.Value]
	assert.True(t, ok, "cookie token must match a stored session")

	var resp struct {
		User struct {
			ID    string  `json:"id"`
			Email string  `json:"email"`
			Name  *string `json:"name"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "new@x.com", resp.User.Email)
	require.NotNil(t, resp.User.Name)
	assert.Equal(t, "Joaquin", *resp.User.Name)
}

func TestVerify_LoginExistingUser(t *testing.T) {
	e := newEnv()
	e.users.byEmail["a@x.com"] = &users.User{ID: "u7", Email: "a@x.com"}
	e.codes.verified = &otp.Pending{}

	w := e.post(t, "/auth/verify", `{"email":"a@x.com","code":"123456"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, e.users.created, "no user is created on login verify")
	require.NotNil(t, sessionCookie(t, w))
}

func TestVerify_InvalidCode(t *testing.T) {
	e := newEnv()
	e.codes.verifyErr = otp.ErrCodeInvalid

	w := e.post(t, "/auth/verify", `{"email":"a@x.com","code":"999999"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired code"}`, w.Body.String())
	assert.Nil(t, sessionCookie(t, w))
}

func TestMe(t *testing.T) {
	e := newEnv()
	e.sessions.sessions["tok1"] = &session.Session{
		Token:     "tok1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      session.User{ID: "u1", Email: "a@x.com"},
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok1"})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":{"id":"u1","email":"a@x.com"}}`, w.Body.String())
}

func TestMe_Unauthenticated(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	e := newEnv()
	e.sessions.sessions["tok1"] = &session.Session{
		Token:     "tok1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      session.User{ID: "u1", Email: "a@x.com"},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok1"})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())
	assert.Contains(t, e.sessions.deleted, "tok1")

	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "cookie must be cleared")
}

func TestOAuthLogin_UnknownProvider(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/github", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"unknown oauth provider"}`, w.Body.String())
}
