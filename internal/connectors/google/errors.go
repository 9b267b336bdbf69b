package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// Common Google API errors. Each wraps the domain error the pipeline
// branches on, so callers outside this package only need errors.Is with
// domain sentinels.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = fmt.Errorf("google: unauthorised (invalid credentials): %w", domain.ErrAuthRequired)

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = fmt.Errorf("google: resource not found: %w", domain.ErrNotFound)

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrPageTokenExpired indicates the changes page token is no longer
	// accepted (410 GONE). The cursor must be reset.
	ErrPageTokenExpired = fmt.Errorf("google: page token expired: %w", domain.ErrCursorExpired)
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || statusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
// Drive reports user rate limits as 403 too; see IsRateLimited.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || statusCode(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || statusCode(err) == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting, either
// as a 429 or as a 403 with a rate-limit reason.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded":
				return true
			}
		}
	}
	return false
}

// IsPageTokenExpired returns true if the error indicates an expired page token (410 GONE).
func IsPageTokenExpired(err error) bool {
	return errors.Is(err, ErrPageTokenExpired) || statusCode(err) == http.StatusGone
}

// RetryAfter returns the Retry-After header of a rate-limited response in
// seconds, or 0 if absent.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs < 0 {
		return 0
	}
	return secs
}

// WrapError converts a Google API error to a more specific error type.
// The original message is kept for logs.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message)
	case IsRateLimited(err):
		return fmt.Errorf("%w: %s", ErrRateLimited, gerr.Message)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	case gerr.Code == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrPageTokenExpired, gerr.Message)
	default:
		return err
	}
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
