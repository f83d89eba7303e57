package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

const (
	// DefaultRedisKeyPrefix is used when no prefix is configured.
	DefaultRedisKeyPrefix = "lvc:events"
	// defaultRedisHistory is the number of events kept in each list.
	defaultRedisHistory = 1000

	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// errEmptyRedisAddr is returned by DialRedis when no address is configured.
var errEmptyRedisAddr = errors.New("redis address is empty")

// redisEvent is the JSON document pushed to Redis.
type redisEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Severity     string    `json:"severity"`
	CycleID      string    `json:"cycle_id,omitempty"`
	SubstationID string    `json:"substation_id"`
	Message      string    `json:"message"`
}

// Redis appends events to per-severity lists and publishes them on a channel.
type Redis struct {
	// client is the Redis connection.
	client *redis.Client
	// prefix is the key namespace.
	prefix string
	// history caps the length of each list.
	history int64
}

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errEmptyRedisAddr
	}

	//nolint:exhaustruct // Defaults are fine for the remaining options.
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	return client, nil
}

// NewRedis creates a Redis sink. An empty prefix selects DefaultRedisKeyPrefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	return &Redis{
		client:  client,
		prefix:  prefix,
		history: defaultRedisHistory,
	}
}

// ListKey returns the list that holds events of the given severity.
func (r *Redis) ListKey(severity voltvar.Severity) string {
	return r.prefix + ":" + severity.String()
}

// Channel returns the pub/sub channel events are published on.
func (r *Redis) Channel() string {
	return r.prefix
}

// Emit implements Emitter.
func (r *Redis) Emit(ctx context.Context, event voltvar.Event) error {
	payload, err := json.Marshal(redisEvent{
		Timestamp:    event.Timestamp,
		Severity:     event.Severity.String(),
		CycleID:      event.CycleID,
		SubstationID: event.SubstationID,
		Message:      event.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := r.ListKey(event.Severity)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -r.history, -1)
		pipe.Publish(ctx, r.Channel(), payload)

		return nil
	})
	if err != nil {
		return fmt.Errorf("push event to redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
