package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type BreakerConfig struct {
	ConsecutiveFailures uint32
	Timeout             time.Duration
	Interval            time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		Interval:            time.Minute,
	}
}

// RedisPublisher sends envelopes over Redis pub/sub. Calls go through a
// circuit breaker so a Redis outage fails fast instead of stalling delivery.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewRedisPublisher(client redis.UniversalClient, channel string, cfg BreakerConfig, logger *slog.Logger) *RedisPublisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-events",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &RedisPublisher{client: client, channel: channel, breaker: breaker, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, e := range events {
		env, err := NewEnvelope(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		payload, err := json.Marshal(env)
		if err != nil {
			errs = append(errs, fmt.Errorf("Publish: marshal: %w", err))
			continue
		}

		_, err = p.breaker.Execute(func() (interface{}, error) {
			return nil, p.client.Publish(ctx, p.channel, payload).Err()
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("Publish: %s: %w", env.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (p *RedisPublisher) State() gobreaker.State {
	return p.breaker.State()
}
