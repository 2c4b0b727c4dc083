package core

import "time"

// Repository is a configured repository the service is allowed to review.
// RemoteID is the platform's own identifier (numeric ID on GitHub/GitLab,
// UUID on Bitbucket). Credential fields override the platform-wide settings
// when non-empty.
type Repository struct {
	ID            int64
	Platform      Platform
	RemoteID      string
	Name          string
	FullName      string
	AccessToken   string
	WebhookSecret string
	APIBaseURL    string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// PlatformSettings holds the platform-wide credentials used when a repository
// carries none of its own.
type PlatformSettings struct {
	ID            int64
	Platform      Platform
	AccessToken   string
	WebhookSecret string
	APIBaseURL    string
	UpdatedAt     *time.Time
}

// Credentials is the resolved per-run credential set handed to an adapter:
// repository overrides first, platform settings as fallback.
type Credentials struct {
	AccessToken string
	APIBaseURL  string
}

// ResolveCredentials merges repository-level overrides over platform settings.
func ResolveCredentials(repo *Repository, settings *PlatformSettings) Credentials {
	creds := Credentials{}
	if settings != nil {
		creds.AccessToken = settings.AccessToken
		creds.APIBaseURL = settings.APIBaseURL
	}
	if repo != nil {
		if repo.AccessToken != "" {
			creds.AccessToken = repo.AccessToken
		}
		if repo.APIBaseURL != "" {
			creds.APIBaseURL = repo.APIBaseURL
		}
	}
	return creds
}

// WebhookSecretFor returns the secret to validate an inbound webhook with,
// repository value first.
func WebhookSecretFor(repo *Repository, settings *PlatformSettings) string {
	if repo != nil && repo.WebhookSecret != "" {
		return repo.WebhookSecret
	}
	if settings != nil {
		return settings.WebhookSecret
	}
	return ""
}
