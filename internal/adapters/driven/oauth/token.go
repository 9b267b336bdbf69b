// Package oauth runs the installed-app authorization code exchange with PKCE.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// Session holds the state of one consent flow.
type Session struct {
	config   *oauth2.Config
	state    string
	verifier string
}

// NewSession prepares a consent flow that redirects to redirectURI.
// An empty state is replaced by a random one.
func NewSession(cfg *oauth2.Config, redirectURI, state string) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: oauth config is required", domain.ErrConfig)
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%w: redirect URI is required", domain.ErrInvalidInput)
	}

	if state == "" {
		state = uuid.NewString()
	}

	c := *cfg
	c.RedirectURL = redirectURI
	return &Session{
		config:   &c,
		state:    state,
		verifier: oauth2.GenerateVerifier(),
	}, nil
}

// State returns the CSRF state the callback must echo.
func (s *Session) State() string {
	return s.state
}

// AuthURL returns the consent page URL. Offline access with a forced
// prompt makes the provider issue a refresh token every time.
func (s *Session) AuthURL() string {
	return s.config.AuthCodeURL(s.state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(s.verifier),
	)
}

// Exchange trades an authorization code for a token.
func (s *Session) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}

	tok, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(s.verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("token error: %s - %s", retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		return nil, fmt.Errorf("token request: %w", err)
	}
	return tok, nil
}
