// Package driving defines the interfaces that external actors (the HTTP
// surface, the CLI) use to drive the pipeline: receiving notifications,
// managing the watch channel and hydrating the label catalog.
//
// Implementations live in internal/core/services.
package driving
