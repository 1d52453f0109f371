// internal/recorder/pubsub.go
package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

const channelPrefix = "launchpad"

// Envelope is the payload published on every channel.
type Envelope struct {
	Type events.EventType `json:"type"`
	Mint string           `json:"mint,omitempty"`
	Data events.Event     `json:"data"`
}

// Broadcaster fans events out over redis pub/sub.
type Broadcaster struct {
	client redis.Cmdable
	logger *zap.Logger
}

func NewBroadcaster(client redis.Cmdable, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: logger.Named("pubsub")}
}

// Channels lists where event is published: the firehose, its type channel
// and, for curve events, the mint channel.
func Channels(event events.Event) []string {
	channels := []string{
		channelPrefix + ":events",
		fmt.Sprintf("%s:type:%s", channelPrefix, event.Type()),
	}
	if me, ok := event.(events.MintEvent); ok {
		channels = append(channels, fmt.Sprintf("%s:mint:%s", channelPrefix, me.MintAddress()))
	}
	return channels
}

// Handle implements events.Handler.
func (b *Broadcaster) Handle(ctx context.Context, event events.Event) error {
	env := Envelope{Type: event.Type(), Data: event}
	if me, ok := event.(events.MintEvent); ok {
		env.Mint = me.MintAddress().String()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := b.client.Pipeline()
	for _, channel := range Channels(event) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Warn("Failed to publish event", zap.String("type", string(event.Type())), zap.Error(err))
		return fmt.Errorf("failed to publish %s: %w", event.Type(), err)
	}
	return nil
}
