// Package google provides shared infrastructure for the Google Drive connector.
//
// It contains:
//   - TokenSource adapter to bridge a driven.TokenProvider to oauth2.TokenSource
//   - Service factory for creating the Drive API client
//   - Error classification for common Google API errors (401, 403, 404, 410, 429)
//   - Rate limiting to respect Drive API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// The router moves files and creates label folders, so it needs full Drive
// access:
//   - https://www.googleapis.com/auth/drive
package google
