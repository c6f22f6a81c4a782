package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type fakeProvider struct {
	name     string
	identity *ports.OAuthIdentity
	err      error
	gotCode  string
	gotNonce string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state, verifier, nonce string) string {
	q := url.Values{"state": {state}, "nonce": {nonce}}
	return "https://provider.example/authorize?" + q.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code, _, nonce string) (*ports.OAuthIdentity, error) {
	p.gotCode, p.gotNonce = code, nonce
	if p.err != nil {
		return nil, p.err
	}
	id := *p.identity
	return &id, nil
}

type memStates map[string]ports.OAuthState

func (m memStates) Save(_ context.Context, key string, st ports.OAuthState, _ time.Duration) error {
	m[key] = st
	return nil
}

func (m memStates) Take(_ context.Context, key string) (*ports.OAuthState, error) {
	st, ok := m[key]
	if !ok {
		return nil, domain.ErrInvalidOAuthState
	}
	delete(m, key)
	return &st, nil
}

type socialFixture struct {
	provider *fakeProvider
	states   memStates
	users    *memUsers
	accounts *memAccounts
	sessions *memSessions
	svc      *SocialAuthService
}

func newSocialFixture(identity *ports.OAuthIdentity) *socialFixture {
	f := &socialFixture{
		provider: &fakeProvider{name: domain.ProviderGitHub, identity: identity},
		states:   memStates{},
		users:    newMemUsers(),
		accounts: &memAccounts{},
		sessions: newMemSessions(),
	}
	f.svc = NewSocialAuthService([]ports.OAuthProvider{f.provider}, f.states, f.users, f.accounts, f.sessions, 0, zerolog.Nop())
	return f
}

func (f *socialFixture) start(t *testing.T, callback string) string {
	t.Helper()
	authURL, err := f.svc.SignInSocial(context.Background(), "github", callback)
	if err != nil {
		t.Fatalf("SignInSocial: %v", err)
	}
	u, _ := url.Parse(authURL)
	return u.Query().Get("state")
}

func TestSocialAuthService_UnknownProvider(t *testing.T) {
	f := newSocialFixture(nil)
	if _, err := f.svc.SignInSocial(context.Background(), "twitter", "/"); !errors.Is(err, domain.ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if got := f.svc.Providers(); len(got) != 1 || got[0] != domain.ProviderGitHub {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestSocialAuthService_CreatesUserAndLinksAccount(t *testing.T) {
	f := newSocialFixture(&ports.OAuthIdentity{
		Provider: domain.ProviderGitHub, AccountID: "42", Email: "Octo@Test.com", EmailVerified: true, Name: "Octo",
	})
	state := f.start(t, "https://evil.example")

	session, callback, err := f.svc.CompleteSocial(context.Background(), "github", state, "code-1", domain.ClientInfo{})
	if err != nil {
		t.Fatalf("CompleteSocial: %v", err)
	}
	if callback != "/" {
		t.Fatalf("external callback must be replaced, got %q", callback)
	}
	if session.User.Email != "octo@test.com" || !session.User.EmailVerified {
		t.Fatalf("unexpected user %+v", session.User)
	}
	if _, err := f.accounts.FindByProvider(context.Background(), domain.ProviderGitHub, "42"); err != nil {
		t.Fatalf("account not linked: %v", err)
	}
	if f.provider.gotCode != "code-1" || f.provider.gotNonce == "" {
		t.Fatalf("exchange not called with saved values")
	}

	if _, _, err := f.svc.CompleteSocial(context.Background(), "github", state, "code-1", domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidOAuthState) {
		t.Fatalf("state must be single use, got %v", err)
	}
}

func TestSocialAuthService_ExistingLinkWins(t *testing.T) {
	f := newSocialFixture(&ports.OAuthIdentity{Provider: domain.ProviderGitHub, AccountID: "42", Email: "changed@test.com"})
	user, _ := f.users.Create(context.Background(), &domain.User{Email: "octo@test.com"})
	_ = f.accounts.Create(context.Background(), &domain.Account{UserID: user.ID, Provider: domain.ProviderGitHub, ProviderAccountID: "42"})

	session, _, err := f.svc.CompleteSocial(context.Background(), "github", f.start(t, "/update-profile"), "c", domain.ClientInfo{})
	if err != nil {
		t.Fatalf("CompleteSocial: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("expected linked user %s, got %s", user.ID, session.UserID)
	}
}

func TestSocialAuthService_LinksByVerifiedEmailOnly(t *testing.T) {
	f := newSocialFixture(&ports.OAuthIdentity{Provider: domain.ProviderGitHub, AccountID: "7", Email: "jane@test.com", EmailVerified: false})
	existing, _ := f.users.Create(context.Background(), &domain.User{Email: "jane@test.com"})

	_, _, err := f.svc.CompleteSocial(context.Background(), "github", f.start(t, "/"), "c", domain.ClientInfo{})
	if !errors.Is(err, domain.ErrAccountNotLinked) {
		t.Fatalf("expected ErrAccountNotLinked, got %v", err)
	}

	f.provider.identity.EmailVerified = true
	session, _, err := f.svc.CompleteSocial(context.Background(), "github", f.start(t, "/"), "c", domain.ClientInfo{})
	if err != nil {
		t.Fatalf("CompleteSocial: %v", err)
	}
	if session.UserID != existing.ID || !session.User.EmailVerified {
		t.Fatalf("expected existing user to be linked and verified: %+v", session.User)
	}
}

func TestSocialAuthService_ProviderMismatchAndUpstream(t *testing.T) {
	f := newSocialFixture(&ports.OAuthIdentity{Provider: domain.ProviderGitHub, AccountID: "1", Email: "a@test.com"})
	f.states["s1"] = ports.OAuthState{Provider: domain.ProviderGoogle}

	if _, _, err := f.svc.CompleteSocial(context.Background(), "github", "s1", "c", domain.ClientInfo{}); !errors.Is(err, domain.ErrInvalidOAuthState) {
		t.Fatalf("expected ErrInvalidOAuthState, got %v", err)
	}

	f.provider.err = errors.New("connection refused")
	if _, _, err := f.svc.CompleteSocial(context.Background(), "github", f.start(t, "/"), "c", domain.ClientInfo{}); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
