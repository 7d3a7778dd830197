package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/config"
)

// RedisSink publishes capture events on a pub/sub channel so an external
// orchestrator can react to checkpoint activity without polling.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects the publisher client.
func NewRedisSink(cfg config.AuditConfig, logger *zap.Logger) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("audit: unable to reach redis", zap.Error(err))
	} else {
		logger.Info("audit: connected to redis")
	}
	return &RedisSink{client: client, channel: cfg.RedisChannel}
}

// Record implements Sink.
func (s *RedisSink) Record(ctx context.Context, event CaptureEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

// Close implements Sink.
func (s *RedisSink) Close() error {
	if s != nil && s.client != nil {
		return s.client.Close()
	}
	return nil
}
