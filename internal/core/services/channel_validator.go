package services

import "github.com/custodia-labs/driveroute/internal/core/domain"

// ValidateChannel compares an inbound notification with the persisted
// watch channel. It is a pure comparison and never fails: a stale or
// spoofed notification is a handled case, acknowledged without processing.
func ValidateChannel(active *domain.WatchChannel, n domain.Notification) domain.ChannelCheck {
	if active == nil || active.ID == "" {
		return domain.ChannelNoActive
	}
	if n.ChannelID != active.ID || n.ResourceID != active.ResourceID {
		return domain.ChannelMismatch
	}
	return domain.ChannelValid
}
