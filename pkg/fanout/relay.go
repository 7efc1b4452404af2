package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RelayMessage is a broadcast travelling between server instances.
type RelayMessage struct {
	Instance string          `json:"instance"`
	Origin   string          `json:"origin"`
	Payload  json.RawMessage `json:"payload"`
}

// Relay carries broadcasts between server instances so clients connected to different processes see each other.
type Relay interface {
	Publish(ctx context.Context, m RelayMessage) error
	// Subscribe calls fn for every message until ctx is done.
	Subscribe(ctx context.Context, fn func(RelayMessage)) error
}

type RedisRelay struct {
	rdb     *redis.Client
	channel string
}

func NewRedisRelay(ctx context.Context, addr, channel string) (*RedisRelay, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	slog.Info("Connected to Redis successfully.", "addr", addr, "channel", channel)
	return &RedisRelay{rdb: rdb, channel: channel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, m RelayMessage) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, fn func(RelayMessage)) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m RelayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				slog.Warn("dropping malformed relay message", "err", err)
				continue
			}
			fn(m)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}
