package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier bridges instances through Redis Pub/Sub; it suits
// deployments whose database is not Postgres.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger
}

func NewRedisNotifier(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: Channel, hub: hub, log: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	return n.hub.Subscribe(ctx)
}

func (n *RedisNotifier) Run(ctx context.Context) error {
	return runForever(ctx, n.log, "redis", n.listen)
}

func (n *RedisNotifier) listen(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", n.channel, err)
	}
	n.log.Info("listening for change events", zap.String("backend", "redis"), zap.String("channel", n.channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				n.log.Warn("ignoring malformed message", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			_ = n.hub.Publish(ctx, ev)
		}
	}
}
