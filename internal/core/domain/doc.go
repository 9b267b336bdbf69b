// Package domain defines the core business entities for driveroute.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - WatchChannel: the active change-feed subscription
//   - ChangeRecord: one entry from the provider's change feed
//   - Catalog: an immutable snapshot of label → destination folder mappings
//   - ClassificationResult: a label decision with confidence
//   - RouteOutcome: what the router did with an item
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
