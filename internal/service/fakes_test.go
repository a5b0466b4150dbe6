package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskflow/internal/auth"
	"taskflow/internal/mail"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// memUsers is an in-memory UserRepository enforcing email uniqueness like the
// unique index does.
type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]model.User
	fails map[string]error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]model.User{}, fails: map[string]error{}}
}

func (r *memUsers) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fails["Create"]; err != nil {
		return err
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memUsers) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fails["FindByEmail"]; err != nil {
		return nil, err
	}
	for _, u := range r.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]model.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r *memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memUsers) countEmail(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

// memTokens is an in-memory TokenRepository.
type memTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.SecondaryToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[uuid.UUID]model.SecondaryToken{}}
}

func (r *memTokens) Create(ctx context.Context, token *model.SecondaryToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.SecretHash == token.SecretHash {
			return repository.ErrDuplicate
		}
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *memTokens) FindLive(ctx context.Context, secretHash string, purpose model.TokenPurpose, now time.Time) (*model.SecondaryToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.SecretHash == secretHash && t.Purpose == purpose && t.Live(now) {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokens) FindByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) ([]model.SecondaryToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SecondaryToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTokens) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
	return nil
}

func (r *memTokens) DeleteByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tokens {
		if t.UserID == userID && (purpose == "" || t.Purpose == purpose) {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *memTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if !t.Live(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *memTokens) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// MockMailer is a mock implementation of mail.Sender.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// lastSecret returns the raw secret embedded in the most recent email link.
func (m *MockMailer) lastSecret(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.Calls, "no email was sent")
	msg := m.Calls[len(m.Calls)-1].Arguments.Get(1).(mail.Message)
	idx := strings.LastIndex(msg.ActionURL, "/")
	require.GreaterOrEqual(t, idx, 0)
	return msg.ActionURL[idx+1:]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type authFixture struct {
	users  *memUsers
	tokens *memTokens
	mailer *MockMailer
	clock  *testClock
	hook   *test.Hook
	svc    AuthService
	jwt    *auth.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	clock := &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	jwtService := auth.NewJWTService("test-secret").WithClock(clock.Now)

	f := &authFixture{
		users:  newMemUsers(),
		tokens: newMemTokens(),
		mailer: new(MockMailer),
		clock:  clock,
		hook:   hook,
		jwt:    jwtService,
	}
	f.svc = NewAuthService(AuthDeps{
		Users:     f.users,
		Tokens:    f.tokens,
		Hasher:    auth.NewBcryptHasher(bcrypt.MinCost),
		Sessions:  jwtService,
		Mailer:    f.mailer,
		Log:       log,
		Now:       clock.Now,
		ClientURL: "http://app.test/",
		MailFrom:  "no-reply@app.test",
	})
	return f
}

func (f *authFixture) register(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return res
}
