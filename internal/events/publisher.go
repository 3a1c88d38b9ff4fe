// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/CameronXie/order-management/internal/domain"
)

// LogPublisher writes events to the log only.
type LogPublisher struct {
	logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.OrderEvent) {
	p.logger.InfoContext(
		ctx,
		"order event",
		"type", event.Type,
		"order_id", event.Payload.OrderID,
		"user_id", event.Payload.UserID,
		"status", event.Payload.Status,
	)
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// RedisPublisher appends events to a Redis stream.
// Failures are logged and never reach the caller.
type RedisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.OrderEvent) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode order event", "error", err, "type", event.Type)
		return
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: []string{
			"type", string(event.Type),
			"payload", string(payload),
		},
	}).Result()
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish order event", "error", err, "type", event.Type, "order_id", event.Payload.OrderID)
		return
	}

	p.logger.DebugContext(ctx, "order event published", "stream", p.stream, "message_id", id)
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NewRedisPublisher connects lazily to the Redis server at addr.
func NewRedisPublisher(addr, stream string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		stream: stream,
		logger: logger,
	}
}
