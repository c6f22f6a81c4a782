package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const githubAPI = "https://api.github.com"

// GitHub signs users in with plain OAuth 2.0 and reads the profile from the
// REST API. GitHub does not support OIDC nonces for OAuth apps, so the nonce
// is ignored.
type GitHub struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitHub(creds Credentials) *GitHub {
	return &GitHub{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: githubAPI,
	}
}

func (g *GitHub) Name() string { return domain.ProviderGitHub }

func (g *GitHub) AuthCodeURL(state, verifier, _ string) string {
	return g.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) Exchange(ctx context.Context, code, verifier, _ string) (*ports.OAuthIdentity, error) {
	token, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	client := g.config.Client(ctx, token)

	var user githubUser
	if err := g.get(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	var emails []githubEmail
	if err := g.get(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	identity := &ports.OAuthIdentity{
		Provider:  domain.ProviderGitHub,
		AccountID: strconv.FormatInt(user.ID, 10),
		Name:      user.Name,
		Image:     user.AvatarURL,
	}
	if identity.Name == "" {
		identity.Name = user.Login
	}

	for _, e := range emails {
		if e.Primary {
			identity.Email, identity.EmailVerified = e.Email, e.Verified
			break
		}
	}
	if identity.Email == "" {
		identity.Email = user.Email
	}
	if identity.Email == "" {
		return nil, domain.ErrOAuthEmailMissing
	}
	return identity, nil
}

func (g *GitHub) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github %s: decode: %w", path, err)
	}
	return nil
}
