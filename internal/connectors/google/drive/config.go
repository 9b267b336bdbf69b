package drive

import "github.com/custodia-labs/driveroute/internal/connectors/google"

// Config holds Google Drive client configuration.
type Config struct {
	// PageSize is the page size for changes.list requests.
	PageSize int64
	// MaxDownloadSize caps raw file downloads.
	MaxDownloadSize int64
	// MaxExportSize caps native document exports.
	MaxExportSize int64
	// RateLimit configures the client-side request limiter.
	RateLimit google.RateLimitConfig
	// OnUnauthorized is called after Drive rejects the access token, so
	// the token provider can drop its cached copy. Optional.
	OnUnauthorized func()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        100,
		MaxDownloadSize: MaxDownloadSize,
		MaxExportSize:   MaxExportSize,
		RateLimit:       google.DefaultDriveRateLimit,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxDownloadSize <= 0 {
		c.MaxDownloadSize = d.MaxDownloadSize
	}
	if c.MaxExportSize <= 0 {
		c.MaxExportSize = d.MaxExportSize
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit = d.RateLimit
	}
	return c
}
