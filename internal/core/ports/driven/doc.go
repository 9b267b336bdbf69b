// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DriveClient: change feed, content reads, moves, watch channels and
//     folder provisioning against the remote store
//   - StateStore: persists the watch channel and the change cursor
//   - CatalogSource: loads and saves the label catalog
//   - TextExtractor: pulls text out of PDF content
//
// # Optional Interfaces
//
// These can be nil and the pipeline degrades gracefully:
//
//   - ModelClassifier: model-backed labelling. Without it every item is
//     labelled by the keyword heuristic.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
