package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/hybridcache/cache"
)

// Codec and helper behavior is testable without a server; the full
// contract is exercised against a live Redis in integration environments.

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	c := NewCache(nil)

	for _, v := range []any{int64(42), 1.5, "text", true, map[string]any{"a": int64(1)}} {
		payload, err := encode(v)
		require.NoError(t, err)
		got, err := c.decode("k", payload)
		require.NoError(t, err)
		require.True(t, got.HasValue())
		assert.Equal(t, v, got.Value())
	}
}

func TestCodec_NullPayload(t *testing.T) {
	t.Parallel()
	c := NewCache(nil)

	payload, err := encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", payload)

	got, err := c.decode("k", payload)
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

// Integers survive as int64, not float64, so typed reads and INCRBY
// observe the same value.
func TestCodec_IntegerPrecision(t *testing.T) {
	t.Parallel()
	c := NewCache(nil)

	big := int64(1<<53 + 1) // beyond float64's exact integer range
	payload, err := encode(big)
	require.NoError(t, err)
	got, err := c.decode("k", payload)
	require.NoError(t, err)
	assert.Equal(t, big, got.Value())
}

func TestDecode_GarbageIsMissByDefault(t *testing.T) {
	t.Parallel()

	lax := NewCache(nil)
	got, err := lax.decode("k", "{not json")
	require.NoError(t, err)
	assert.False(t, got.HasValue())

	strict := NewCache(nil, WithStrictDecoding())
	_, err = strict.decode("k", "{not json")
	require.Error(t, err)
}

func TestEscapeMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `plain`, escapeMatch("plain"))
	assert.Equal(t, `a\*b`, escapeMatch("a*b"))
	assert.Equal(t, `q\?\[x\]`, escapeMatch("q?[x]"))
}

func TestPxArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", pxArg(nil))
	assert.Equal(t, "1500", pxArg(cache.TTL(1500*time.Millisecond)))
}

func TestEncodeElements_DedupsAndSkipsNil(t *testing.T) {
	t.Parallel()

	fields, err := encodeElements([]any{"a", "a", nil, int64(1), int64(1)})
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}
