package offline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", Entry{Status: 200, Body: []byte("A")})
	c.put("b", Entry{Status: 200, Body: []byte("B")})

	e, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("A"), e.Body)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", Entry{Body: []byte("A")})
	c.put("b", Entry{Body: []byte("B")})
	c.put("c", Entry{Body: []byte("C")})

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", Entry{Body: []byte("A")})
	c.put("b", Entry{Body: []byte("B")})
	c.get("a")
	c.put("c", Entry{Body: []byte("C")})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", Entry{Body: []byte("A1")})
	c.put("a", Entry{Body: []byte("A2")})

	e, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("A2"), e.Body)
	assert.Equal(t, 1, c.len())
}

func TestMemoryStore_Generations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	require.NoError(t, s.Put(ctx, "pukaar-cache-v3", "k", Entry{Status: 200}))
	require.NoError(t, s.Put(ctx, "pukaar-cache-v2", "k", Entry{Status: 203}))

	e, err := s.Get(ctx, "pukaar-cache-v3", "k")
	require.NoError(t, err)
	assert.Equal(t, 200, e.Status)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pukaar-cache-v2", "pukaar-cache-v3"}, names)

	require.NoError(t, s.Delete(ctx, "pukaar-cache-v2"))
	_, err = s.Get(ctx, "pukaar-cache-v2", "k")
	assert.ErrorIs(t, err, ErrNotCached)
}
