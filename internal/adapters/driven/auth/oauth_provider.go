// Package auth provides the OAuth token provider used to call Google Drive.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure OAuthProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*OAuthProvider)(nil)

// DefaultRefreshBuffer refreshes tokens this long before they expire.
const DefaultRefreshBuffer = 5 * time.Minute

// OAuthProvider provides OAuth access tokens with automatic refresh.
// Refreshed tokens are written back to the token store.
type OAuthProvider struct {
	config *oauth2.Config
	store  *TokenStore

	mu            sync.RWMutex
	cachedToken   string
	cacheExpiry   time.Time
	rejected      string
	refreshBuffer time.Duration
	now           func() time.Time
}

// NewOAuthProvider creates a token provider.
func NewOAuthProvider(config *oauth2.Config, store *TokenStore) *OAuthProvider {
	return &OAuthProvider{
		config:        config,
		store:         store,
		refreshBuffer: DefaultRefreshBuffer,
		now:           time.Now,
	}
}

// GetToken returns a valid access token, refreshing if necessary.
//
//nolint:nestif // Token refresh with necessary concurrency checks
func (p *OAuthProvider) GetToken(ctx context.Context) (string, error) {
	// Fast path: check cache with read lock
	p.mu.RLock()
	if p.cachedToken != "" && p.now().Before(p.cacheExpiry) {
		token := p.cachedToken
		p.mu.RUnlock()
		return token, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if p.cachedToken != "" && p.now().Before(p.cacheExpiry) {
		return p.cachedToken, nil
	}

	tok, err := p.store.Load()
	if err != nil {
		return "", err
	}

	needsRefresh := tok.AccessToken == "" || (p.rejected != "" && tok.AccessToken == p.rejected)
	if !tok.Expiry.IsZero() {
		needsRefresh = needsRefresh || tok.Expiry.Sub(p.now()) < p.refreshBuffer
	}

	if needsRefresh {
		if tok.RefreshToken == "" {
			return "", fmt.Errorf("%w: token expired and has no refresh token", domain.ErrAuthRequired)
		}
		refreshed, err := p.refresh(ctx, tok.RefreshToken)
		if err != nil {
			return "", err
		}
		if err := p.store.Save(refreshed); err != nil {
			return "", fmt.Errorf("save refreshed token: %w", err)
		}
		logger.Debug("[AUTH] access token refreshed, expires %s", refreshed.Expiry.Format(time.RFC3339))
		tok = refreshed
	}

	p.cachedToken = tok.AccessToken
	p.rejected = ""
	if !tok.Expiry.IsZero() {
		p.cacheExpiry = tok.Expiry.Add(-p.refreshBuffer)
	} else {
		p.cacheExpiry = p.now().Add(time.Hour)
	}
	return p.cachedToken, nil
}

// refresh exchanges a refresh token for a new access token.
// A rejected grant means the user has to consent again.
func (p *OAuthProvider) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: refresh rejected: %v", domain.ErrAuthRequired, err)
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// IsAuthenticated reports whether a usable token is cached or stored.
func (p *OAuthProvider) IsAuthenticated() bool {
	p.mu.RLock()
	if p.cachedToken != "" && p.now().Before(p.cacheExpiry) {
		p.mu.RUnlock()
		return true
	}
	p.mu.RUnlock()

	tok, err := p.store.Load()
	if err != nil {
		return false
	}
	return tok.RefreshToken != "" || (tok.AccessToken != "" && (tok.Expiry.IsZero() || p.now().Before(tok.Expiry)))
}

// InvalidateCache drops the cached token after the API rejected it. The
// next GetToken refreshes unless the store already holds a different token.
func (p *OAuthProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cachedToken != "" {
		p.rejected = p.cachedToken
	}
	p.cachedToken = ""
	p.cacheExpiry = time.Time{}
}
