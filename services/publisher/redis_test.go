package publisher

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prisradar/offerworker/internal/domain"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_offers_r", 3)
	defer publisher.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	// Test if Redis is available
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	stream := "test_offers_r:" + string(domain.CategoryMobile)
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	err := publisher.PublishRefresh(domain.CategoryMobile, []byte("test_message"))
	assert.NoError(t, err)

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The payload should be base64 encoded under the category key
	assert.Equal(t, "dGVzdF9tZXNzYWdl", entries[0].Values[string(domain.CategoryMobile)]) // base64 of "test_message"
}

func TestRedisPublisherTrimStreams(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher(ctx, "localhost:6379", 0, "test_offers_trim", 3)
	defer publisher.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	stream := "test_offers_trim:" + string(domain.CategoryElectricity)
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	for i := 0; i < 10; i++ {
		err := publisher.PublishRefresh(domain.CategoryElectricity, []byte("event"))
		require.NoError(t, err)
	}

	err := publisher.TrimStreams()
	assert.NoError(t, err)

	length, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}
