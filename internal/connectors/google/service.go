package google

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveScope grants read/write access to the user's Drive.
const DriveScope = drive.DriveScope

// NewDriveService creates a Google Drive API service using the provided TokenSource.
// Extra options are appended, so tests can point the client at a fake endpoint.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	return drive.NewService(ctx, all...)
}
