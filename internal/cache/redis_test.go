package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedis(client, time.Minute, "pos:test:")
	ctx := context.Background()

	var got map[string]int
	require.False(t, c.GetJSON(ctx, KindLists, "k", &got))

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}))
	require.Equal(t, time.Minute, mr.TTL("pos:test:k"))
	require.True(t, c.GetJSON(ctx, KindLists, "k", &got))
	require.Equal(t, 1, got["a"])

	require.NoError(t, mr.Set("pos:test:bad", "{"))
	require.False(t, c.GetJSON(ctx, KindLists, "bad", &got))

	require.NoError(t, c.Delete(ctx, "k", "bad"))
	require.False(t, mr.Exists("pos:test:k"))
}

func TestNilRedisIsDisabled(t *testing.T) {
	var c *Redis
	var v string
	require.False(t, c.GetJSON(context.Background(), KindProduct, "x", &v))
	require.NoError(t, c.SetJSON(context.Background(), "x", "y"))
	require.NoError(t, c.Delete(context.Background(), "x"))
}

func TestKeys(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "report:sales:2026-10-01:2026-10-15", KeyReport("sales", from, to))
	require.Equal(t, "product:7", KeyProduct("7"))
	require.Equal(t, "barcode:479", KeyBarcode("479"))
}
