package driven

import "context"

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token, refreshing it if it is about
	// to expire. Returns domain.ErrAuthRequired when no credentials are stored.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if stored credentials are available.
	IsAuthenticated() bool
}
