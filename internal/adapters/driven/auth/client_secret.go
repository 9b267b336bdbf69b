package auth

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// LoadOAuthConfig reads a Google installed-app client secret file.
func LoadOAuthConfig(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: client secret %s not found", domain.ErrConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secret %s: %v", domain.ErrConfig, path, err)
	}
	return cfg, nil
}
