package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/99minutos/account-service/internal/core/domain"
)

func newGitHubServer(t *testing.T, emails string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "the-code" || r.Form.Get("code_verifier") != "the-verifier" {
			http.Error(w, "bad exchange", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":42,"login":"octocat","name":"","avatar_url":"https://avatars.example/42"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emails))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testGitHub(srv *httptest.Server) *GitHub {
	g := NewGitHub(Credentials{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/api/auth/callback/github"})
	g.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/login/oauth/authorize",
		TokenURL:  srv.URL + "/login/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	g.apiBase = srv.URL
	return g
}

func TestGitHub_Exchange(t *testing.T) {
	srv := newGitHubServer(t, `[{"email":"old@test.com","primary":false,"verified":true},{"email":"octo@test.com","primary":true,"verified":true}]`)
	g := testGitHub(srv)

	id, err := g.Exchange(context.Background(), "the-code", "the-verifier", "")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if id.AccountID != "42" || id.Email != "octo@test.com" || !id.EmailVerified {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.Name != "octocat" {
		t.Fatalf("expected login fallback for empty name, got %q", id.Name)
	}
}

func TestGitHub_ExchangeWithoutEmail(t *testing.T) {
	srv := newGitHubServer(t, `[]`)
	g := testGitHub(srv)

	if _, err := g.Exchange(context.Background(), "the-code", "the-verifier", ""); !errors.Is(err, domain.ErrOAuthEmailMissing) {
		t.Fatalf("expected ErrOAuthEmailMissing, got %v", err)
	}
}

func TestGitHub_AuthCodeURL(t *testing.T) {
	g := NewGitHub(Credentials{ClientID: "id", RedirectURL: "http://localhost/api/auth/callback/github"})

	u, err := url.Parse(g.AuthCodeURL("st", "verifier", "nonce"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "st" || q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Fatalf("unexpected auth url query: %v", q)
	}
	if u.Host != "github.com" {
		t.Fatalf("unexpected host %s", u.Host)
	}
}
