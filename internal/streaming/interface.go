// Package streaming publishes best-effort lifecycle events (order
// completed, settlement issued, settlement sweep count) to an external
// event bus.
// Grounded on control_plane/streaming/interface.go; this core never blocks
// on delivery succeeding since the event bus is an external collaborator,
// not part of this system's durable state.
package streaming

import "context"

// Publisher publishes a lifecycle event under a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}
