// Package notify publishes round and team change announcements to
// subscribers. Delivery is best effort.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher sends payload to every subscriber of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// StatusTopic is the channel for round completion and selection changes.
func StatusTopic(eventID int64, roundNo int) string {
	return fmt.Sprintf("STATUS_UPDATE/%d-%d", eventID, roundNo)
}

// TeamTopic is the channel for team promotions within a round.
func TeamTopic(eventID int64, roundNo int) string {
	return fmt.Sprintf("TEAM_UPDATED/%d-%d", eventID, roundNo)
}

// WinnerTopic is the channel for placings declared in an event.
func WinnerTopic(eventID int64) string {
	return fmt.Sprintf("WINNER_UPDATED/%d", eventID)
}

// RedisPublisher publishes JSON payloads over Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{rdb: rdb}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	if err := p.rdb.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// LogPublisher writes announcements to the log. Used when no Redis is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, topic string, payload any) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "publish", "topic", topic, "payload", payload)
	return nil
}
