package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed is a fixed-window limiter built on ulule/limiter with a Redis store.
type Fixed struct {
	L *limiter.Limiter
}

// NewFixed parses a formatted rate such as "300-M" and binds it to a Redis store.
func NewFixed(client *redis.Client, formatted, prefix string) (Fixed, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return Fixed{}, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return Fixed{}, fmt.Errorf("limiter store: %w", err)
	}
	return Fixed{L: limiter.New(store, rate)}, nil
}

// Allow implements Limiter.
func (f Fixed) Allow(ctx context.Context, key string) (Decision, error) {
	if f.L == nil {
		return Decision{Allowed: true}, nil
	}
	lctx, err := f.L.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
