package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// providerSource serves access tokens from a driven.TokenProvider so the
// provider stays the single owner of refresh and persistence.
type providerSource struct {
	ctx      context.Context
	provider driven.TokenProvider
}

// NewTokenSource wraps provider for option.WithTokenSource. Every call asks
// the provider, which caches and refreshes on its own schedule.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return providerSource{ctx: ctx, provider: provider}
}

func (s providerSource) Token() (*oauth2.Token, error) {
	access, err := s.provider.GetToken(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("drive access token: %w", err)
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}
