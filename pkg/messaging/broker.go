package messaging

import "context"

// Broker publishes and consumes notification events.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channel names used by the application.
const (
	ChannelNotifications = "notifications"
)
