// Package publish delivers display projections to external consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
)

const stateTTL = 30 * time.Second

// RedisPublisher pushes each projection to Redis: the latest state is
// kept under a per-symbol key and every tick is fanned out on a
// pub/sub channel. A circuit breaker isolates the engine from a dead
// Redis so the hotpath never stalls on publishes.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	breaker *infra.CircuitBreaker
}

// NewRedisPublisher connects to the given Redis address.
func NewRedisPublisher(addr, channel string) *RedisPublisher {
	return &RedisPublisher{
		rdb: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
		channel: channel,
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("redis-publish")),
	}
}

// Ping verifies connectivity at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish stores and broadcasts one projection.
func (p *RedisPublisher) Publish(ctx context.Context, proj *domain.Projection) error {
	if !p.breaker.Allow() {
		return fmt.Errorf("redis publish: circuit open")
	}

	data, err := json.Marshal(proj)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}

	key := stateKey(proj.Symbol)
	pipe := p.rdb.Pipeline()
	pipe.Set(ctx, key, data, stateTTL)
	pipe.Publish(ctx, p.channel, data)

	if _, err := pipe.Exec(ctx); err != nil {
		p.breaker.RecordFailure()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.breaker.RecordSuccess()
	return nil
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

func stateKey(symbol string) string {
	return "orderbook:state:" + strings.ToLower(symbol)
}
