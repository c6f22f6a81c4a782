package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	seq   int
	calls []string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrEmailAlreadyRegistered
		}
	}
	r.seq++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user_%d", r.seq)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	r.calls = append(r.calls, "UpdateProfile")
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Image != nil {
		u.Image = *update.Image
	}
	return cloneUser(u), nil
}

func (r *memUsers) MarkEmailVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memAccounts struct {
	mu        sync.Mutex
	accounts  []*domain.Account
	createErr error
}

func (r *memAccounts) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	c := *a
	r.accounts = append(r.accounts, &c)
	return nil
}

func (r *memAccounts) FindByProvider(_ context.Context, provider, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Provider == provider && a.ProviderAccountID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccounts) FindByUser(_ context.Context, userID, provider string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.UserID == userID && a.Provider == provider {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

type memSessions struct {
	mu      sync.Mutex
	byToken map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: make(map[string]*domain.Session)}
}

func (r *memSessions) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	c.User = nil
	r.byToken[s.Token] = &c
	return nil
}

func (r *memSessions) FindByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memSessions) Extend(_ context.Context, token string, expiresAt, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.ExpiresAt, s.UpdatedAt = expiresAt, updatedAt
	return nil
}

func (r *memSessions) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, token)
	return nil
}

func (r *memSessions) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.byToken {
		if s.UserID == userID {
			delete(r.byToken, k)
		}
	}
	return nil
}

func (r *memSessions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

type memVerifications struct {
	mu     sync.Mutex
	byHash map[string]*domain.Verification
}

func newMemVerifications() *memVerifications {
	return &memVerifications{byHash: make(map[string]*domain.Verification)}
}

func (r *memVerifications) Create(_ context.Context, v *domain.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *v
	r.byHash[v.TokenHash] = &c
	return nil
}

func (r *memVerifications) Consume(_ context.Context, hash string, purpose domain.VerificationPurpose) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byHash[hash]
	if !ok || v.Purpose != purpose {
		return nil, domain.ErrInvalidToken
	}
	delete(r.byHash, hash)
	return v, nil
}

type stubLimiter struct {
	allow  bool
	err    error
	resets []string
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) { return l.allow, l.err }

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	l.resets = append(l.resets, key)
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) Verification(d ports.VerificationEmail) (ports.EmailMessage, error) {
	return ports.EmailMessage{Template: "verification", To: d.To, Subject: "verify", HTML: d.URL, Text: d.Name}, nil
}

func (fakeRenderer) PasswordReset(d ports.PasswordResetEmail) (ports.EmailMessage, error) {
	return ports.EmailMessage{Template: "reset-password", To: d.To, Subject: "reset", HTML: d.URL}, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []ports.EmailMessage
}

func (d *recordingDispatcher) Dispatch(msg ports.EmailMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
}

func (d *recordingDispatcher) messages() []ports.EmailMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ports.EmailMessage(nil), d.sent...)
}

type fixture struct {
	users         *memUsers
	accounts      *memAccounts
	sessions      *memSessions
	verifications *memVerifications
	dispatcher    *recordingDispatcher
	svc           *AuthService
	clock         time.Time
}

func newFixture(cfg AuthConfig) *fixture {
	f := &fixture{
		users:         newMemUsers(),
		accounts:      &memAccounts{},
		sessions:      newMemSessions(),
		verifications: newMemVerifications(),
		dispatcher:    &recordingDispatcher{},
		clock:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	f.svc = NewAuthService(AuthDeps{
		Users:         f.users,
		Accounts:      f.accounts,
		Sessions:      f.sessions,
		Verifications: f.verifications,
		Emails:        fakeRenderer{},
		Dispatcher:    f.dispatcher,
	}, cfg, zerolog.Nop())
	f.svc.setClock(func() time.Time { return f.clock })
	return f
}
