package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	id, err := PublishJSONToStream(ctx, client, "juni:events", 0, "match.accepted", map[string]string{"match_id": "m-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "juni:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "match.accepted", msgs[0].Values["type"])
	assert.JSONEq(t, `{"match_id":"m-1"}`, msgs[0].Values["data"].(string))
}

func TestPublishToStream_FlattensValues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	_, err := PublishToStream(ctx, client, "s", 0, map[string]interface{}{
		"n":    42,
		"ok":   true,
		"list": []string{"a", "b"},
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "s", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0].Values["n"])
	assert.Equal(t, "true", msgs[0].Values["ok"])
	assert.Equal(t, `["a","b"]`, msgs[0].Values["list"])
}
