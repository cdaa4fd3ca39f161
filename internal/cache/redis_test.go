package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilClientIsAlwaysMiss(t *testing.T) {
	c := NewJSONCache(nil, "movies")
	ctx := context.Background()

	assert.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var out map[string]int
	found, err := c.GetJSON(ctx, "k", &out)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, out)
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *JSONCache
	found, err := c.GetJSON(context.Background(), "k", new(string))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(context.Background(), "k", "v", time.Second))
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "movies:search:heat", NewJSONCache(nil, "movies").key("search:heat"))
	assert.Equal(t, "raw", NewJSONCache(nil, "").key("raw"))
}
