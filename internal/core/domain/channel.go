package domain

import "time"

// WatchChannel identifies one active subscription to the change feed.
// At most one channel is active at a time. It is created by an explicit
// subscribe, cleared by an explicit unsubscribe, and never mutated otherwise.
type WatchChannel struct {
	// ID is the opaque token generated at subscribe time.
	ID string `json:"id"`

	// ResourceID is assigned by the feed provider.
	ResourceID string `json:"resourceId"`

	// Address is the callback URL notifications are delivered to.
	Address string `json:"address"`

	// Expiration is when the provider will stop delivering, if known.
	Expiration *time.Time `json:"expiration,omitempty"`

	// CreatedAt is when the subscription was opened.
	CreatedAt time.Time `json:"createdAt"`
}

// WatchRequest describes a subscription to open.
type WatchRequest struct {
	ChannelID string
	Address   string
}

// Notification carries the identifying fields of an inbound change
// notification. Drive sends these as X-Goog-* headers.
type Notification struct {
	ChannelID     string
	ResourceID    string
	ResourceState string
	MessageNumber string
}

// ChannelCheck is the result of validating a notification against the
// persisted watch channel.
type ChannelCheck int

const (
	// ChannelValid means the notification belongs to the active channel.
	ChannelValid ChannelCheck = iota
	// ChannelNoActive means no watch channel is persisted.
	ChannelNoActive
	// ChannelMismatch means the channel or resource ID differ.
	ChannelMismatch
)

// String returns a short name suitable for logs and HTTP bodies.
func (c ChannelCheck) String() string {
	switch c {
	case ChannelValid:
		return "valid"
	case ChannelNoActive:
		return "no-active-channel"
	case ChannelMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}
