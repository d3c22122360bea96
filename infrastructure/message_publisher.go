package infrastructure

import (
	"context"
)

// MessagePublisher is the part of the NATS client the publishers depend on
type MessagePublisher interface {
	// PublishWithID publishes to a stream-backed subject; msgID is used for dedupe when set
	PublishWithID(ctx context.Context, subject, msgID string, data []byte) error

	// PublishCore sends a fire-and-forget message with no stream acknowledgement
	PublishCore(subject string, data []byte) error
}
