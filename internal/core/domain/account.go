package domain

import "time"

const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
	ProviderGitHub     = "github"
)

// Account links a credential or an OAuth identity to a User. A user may hold
// several accounts, one per provider.
type Account struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}
