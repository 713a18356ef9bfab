// Package redis implements the cache contract on a Redis server. It is
// the production remote tier for the hybrid cache: payloads are stored
// as JSON strings, numeric fast paths ride INCRBY/INCRBYFLOAT, and the
// compare-and-swap and list operations run as Lua scripts so they stay
// atomic on the server.
package redis

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/cache"
)

// Cache implements cache.Cache on a Redis connection.
type Cache struct {
	rdb    goredis.UniversalClient
	log    *zap.Logger
	strict bool
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a redis Cache.
type Option func(*Cache)

// WithLogger routes decode warnings to log.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithStrictDecoding surfaces payload decode failures instead of
// degrading them to a miss.
func WithStrictDecoding() Option {
	return func(c *Cache) { c.strict = true }
}

// NewCache wraps an established go-redis client. The caller keeps
// ownership of the client unless Close is used.
func NewCache(rdb goredis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{rdb: rdb, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThrowsOnSerializationError reports the strict-decoding setting.
func (c *Cache) ThrowsOnSerializationError() bool { return c.strict }

// ---- codec ----

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Cache) decode(key, payload string) (cache.Value[any], error) {
	if payload == "null" {
		return cache.Null[any](), nil
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if c.strict {
			return cache.Missing[any](), err
		}
		c.log.Warn("redis: undecodable payload treated as miss",
			zap.String("key", key), zap.Error(err))
		return cache.Missing[any](), nil
	}
	return cache.Found(normalizeDecoded(v)), nil
}

// normalizeDecoded turns json.Number payloads into int64/float64 so the
// typed helpers see the same shapes the in-process engine stores.
func normalizeDecoded(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeDecoded(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeDecoded(t[k])
		}
		return t
	}
	return v
}

func validKey(key string) error {
	if key == "" {
		return cache.ErrInvalidArgument
	}
	return nil
}

// pxArg renders a TTL for the scripts: "" means no PEXPIRE call.
func pxArg(ttl *time.Duration) string {
	if ttl == nil {
		return ""
	}
	return strconv.FormatInt(ttl.Milliseconds(), 10)
}

// ---- scripts ----

var (
	// Fast-path increment with reset-on-parse-failure semantics:
	// INCRBY creates missing keys and preserves the TTL of existing
	// ones; a non-integer payload is overwritten with the amount.
	incrByScript = goredis.NewScript(`
local ok, res = pcall(function() return redis.call('INCRBY', KEYS[1], ARGV[1]) end)
if not ok then
  redis.call('SET', KEYS[1], ARGV[1])
  res = tonumber(ARGV[1])
end
if ARGV[2] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[2]) end
return res
`)

	incrByFloatScript = goredis.NewScript(`
local ok, res = pcall(function() return redis.call('INCRBYFLOAT', KEYS[1], ARGV[1]) end)
if not ok then
  redis.call('SET', KEYS[1], ARGV[1])
  res = ARGV[1]
end
if ARGV[2] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[2]) end
return tostring(res)
`)

	// Conditional set: ARGV[1]=value ARGV[2]=px ARGV[3]=cmp ('hi'/'lo').
	// Returns the difference as a string; '0' when the condition failed.
	// A plain SET clears the TTL, which is the contract for a met
	// condition without a TTL argument.
	setIfCompareScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local val = tonumber(ARGV[1])
local n = nil
if cur ~= false then n = tonumber(cur) end
if n == nil then
  redis.call('SET', KEYS[1], ARGV[1])
  if ARGV[2] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[2]) end
  return ARGV[1]
end
if (ARGV[3] == 'hi' and val > n) or (ARGV[3] == 'lo' and val < n) then
  redis.call('SET', KEYS[1], ARGV[1])
  if ARGV[2] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[2]) end
  if ARGV[3] == 'hi' then return tostring(val - n) end
  return tostring(n - val)
end
return '0'
`)

	replaceIfEqualScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false or cur ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2])
if ARGV[3] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[3]) end
return 1
`)

	removeIfEqualScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false or cur ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

	// List entries are hashes: field = encoded element, value = absolute
	// expiration in unix millis ('0' = never). The key-level deadline is
	// recomputed from the surviving fields after every mutation.
	listAddScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
for i = 3, #ARGV do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[2])
end
local h = redis.call('HGETALL', KEYS[1])
local maxexp = 0
local never = false
for i = 1, #h, 2 do
  local e = tonumber(h[i+1])
  if e ~= 0 and e <= now then
    redis.call('HDEL', KEYS[1], h[i])
  elseif e == 0 then
    never = true
  elseif e > maxexp then
    maxexp = e
  end
end
if redis.call('EXISTS', KEYS[1]) == 1 then
  if never then redis.call('PERSIST', KEYS[1])
  else redis.call('PEXPIREAT', KEYS[1], maxexp) end
end
return #ARGV - 2
`)

	listRemoveScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local removed = 0
for i = 3, #ARGV do
  local e = redis.call('HGET', KEYS[1], ARGV[i])
  if e then
    if tonumber(e) == 0 or tonumber(e) > now then removed = removed + 1 end
    redis.call('HDEL', KEYS[1], ARGV[i])
  end
end
local h = redis.call('HGETALL', KEYS[1])
local maxexp = 0
local never = false
for i = 1, #h, 2 do
  local e = tonumber(h[i+1])
  if e ~= 0 and e <= now then
    redis.call('HDEL', KEYS[1], h[i])
  elseif e == 0 then
    never = true
  elseif e > maxexp then
    maxexp = e
  end
end
if redis.call('EXISTS', KEYS[1]) == 1 then
  if ARGV[2] ~= '' then redis.call('PEXPIRE', KEYS[1], ARGV[2])
  elseif never then redis.call('PERSIST', KEYS[1])
  else redis.call('PEXPIREAT', KEYS[1], maxexp) end
end
return removed
`)
)

// ---- reads ----

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) (cache.Value[any], error) {
	if err := validKey(key); err != nil {
		return cache.Missing[any](), err
	}
	payload, err := c.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return cache.Missing[any](), nil
	}
	if err != nil {
		if isWrongType(err) {
			return cache.Missing[any](), nil
		}
		return cache.Missing[any](), err
	}
	return c.decode(key, payload)
}

// GetAll implements cache.Cache.
func (c *Cache) GetAll(ctx context.Context, keys []string) (map[string]cache.Value[any], error) {
	if keys == nil {
		return nil, cache.ErrInvalidArgument
	}
	out := make(map[string]cache.Value[any], len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	for _, k := range keys {
		if err := validKey(k); err != nil {
			return nil, err
		}
	}
	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if raw[i] == nil {
			out[k] = cache.Missing[any]()
			continue
		}
		s, _ := raw[i].(string)
		v, err := c.decode(k, s)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Has implements cache.Cache.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// GetExpiration implements cache.Cache.
func (c *Cache) GetExpiration(ctx context.Context, key string) (*time.Duration, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	d, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if d < 0 {
		// -2: absent; -1: no TTL. Both map to nil here.
		return nil, nil
	}
	return &d, nil
}

// GetAllExpiration implements cache.Cache.
func (c *Cache) GetAllExpiration(ctx context.Context, keys []string) (map[string]*time.Duration, error) {
	if keys == nil {
		return nil, cache.ErrInvalidArgument
	}
	out := make(map[string]*time.Duration, len(keys))
	for _, k := range keys {
		if err := validKey(k); err != nil {
			return nil, err
		}
		d, err := c.rdb.PTTL(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if d >= 0 {
			ttl := d
			out[k] = &ttl
			continue
		}
		// Negative PTTL: distinguish "present without TTL" from absent.
		n, err := c.rdb.Exists(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			out[k] = nil
		}
	}
	return out, nil
}

// GetList implements cache.Cache.
func (c *Cache) GetList(ctx context.Context, key string, page, pageSize int) (cache.Value[[]any], error) {
	if err := validKey(key); err != nil {
		return cache.Missing[[]any](), err
	}
	if page < 1 || pageSize < 1 {
		return cache.Missing[[]any](), cache.ErrInvalidArgument
	}
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		if isWrongType(err) {
			return cache.Missing[[]any](), nil
		}
		return cache.Missing[[]any](), err
	}
	if len(fields) == 0 {
		return cache.Missing[[]any](), nil
	}

	now := time.Now().UnixMilli()
	encoded := make([]string, 0, len(fields))
	for f, expiry := range fields {
		e, err := strconv.ParseInt(expiry, 10, 64)
		if err != nil || (e != 0 && e <= now) {
			continue
		}
		encoded = append(encoded, f)
	}
	if len(encoded) == 0 {
		return cache.Missing[[]any](), nil
	}
	sort.Strings(encoded)

	start := (page - 1) * pageSize
	if start >= len(encoded) {
		return cache.Found([]any{}), nil
	}
	end := start + pageSize
	if end > len(encoded) {
		end = len(encoded)
	}

	out := make([]any, 0, end-start)
	for _, f := range encoded[start:end] {
		v, err := c.decode(key, f)
		if err != nil {
			return cache.Missing[[]any](), err
		}
		if v.HasValue() && !v.IsNull() {
			out = append(out, v.Value())
		}
	}
	return cache.Found(out), nil
}

// ---- writes ----

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		err := c.rdb.Del(ctx, key).Err()
		return false, err
	}
	payload, err := encode(value)
	if err != nil {
		return false, err
	}
	return true, c.rdb.Set(ctx, key, payload, expiration(ttl)).Err()
}

// Add implements cache.Cache.
func (c *Cache) Add(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		err := c.rdb.Del(ctx, key).Err()
		return false, err
	}
	payload, err := encode(value)
	if err != nil {
		return false, err
	}
	return c.rdb.SetNX(ctx, key, payload, expiration(ttl)).Result()
}

// Replace implements cache.Cache.
func (c *Cache) Replace(ctx context.Context, key string, value any, ttl *time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		err := c.rdb.Del(ctx, key).Err()
		return false, err
	}
	payload, err := encode(value)
	if err != nil {
		return false, err
	}
	return c.rdb.SetXX(ctx, key, payload, expiration(ttl)).Result()
}

// ReplaceIfEqual implements cache.Cache.
func (c *Cache) ReplaceIfEqual(ctx context.Context, key string, value, expected any, ttl *time.Duration) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		err := c.rdb.Del(ctx, key).Err()
		return false, err
	}
	expectedPayload, err := encode(expected)
	if err != nil {
		return false, err
	}
	payload, err := encode(value)
	if err != nil {
		return false, err
	}
	n, err := replaceIfEqualScript.Run(ctx, c.rdb, []string{key},
		expectedPayload, payload, pxArg(ttl)).Int64()
	return n == 1, err
}

// RemoveIfEqual implements cache.Cache.
func (c *Cache) RemoveIfEqual(ctx context.Context, key string, expected any) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	expectedPayload, err := encode(expected)
	if err != nil {
		return false, err
	}
	n, err := removeIfEqualScript.Run(ctx, c.rdb, []string{key}, expectedPayload).Int64()
	return n == 1, err
}

// SetAll implements cache.Cache.
func (c *Cache) SetAll(ctx context.Context, values map[string]any, ttl *time.Duration) (int, error) {
	if values == nil {
		return 0, cache.ErrInvalidArgument
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		if len(keys) == 0 {
			return 0, nil
		}
		return 0, c.rdb.Del(ctx, keys...).Err()
	}
	pipe := c.rdb.Pipeline()
	for k, v := range values {
		if err := validKey(k); err != nil {
			return 0, err
		}
		payload, err := encode(v)
		if err != nil {
			return 0, err
		}
		pipe.Set(ctx, k, payload, expiration(ttl))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(values), nil
}

// SetExpiration implements cache.Cache.
func (c *Cache) SetExpiration(ctx context.Context, key string, ttl time.Duration) error {
	if err := validKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return c.rdb.Del(ctx, key).Err()
	}
	if ttl == cache.NeverExpires {
		return c.rdb.Persist(ctx, key).Err()
	}
	return c.rdb.PExpire(ctx, key, ttl).Err()
}

// SetAllExpiration implements cache.Cache.
func (c *Cache) SetAllExpiration(ctx context.Context, expirations map[string]*time.Duration) error {
	if expirations == nil {
		return cache.ErrInvalidArgument
	}
	for k, ttl := range expirations {
		if err := validKey(k); err != nil {
			return err
		}
		ttl = normalizeTTL(ttl)
		switch {
		case ttl == nil:
			if err := c.rdb.Persist(ctx, k).Err(); err != nil {
				return err
			}
		case *ttl <= 0:
			if err := c.rdb.Del(ctx, k).Err(); err != nil {
				return err
			}
		default:
			if err := c.rdb.PExpire(ctx, k, *ttl).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Increment implements cache.Cache.
func (c *Cache) Increment(ctx context.Context, key string, amount int64, ttl *time.Duration) (int64, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		return 0, c.rdb.Del(ctx, key).Err()
	}
	return incrByScript.Run(ctx, c.rdb, []string{key},
		strconv.FormatInt(amount, 10), pxArg(ttl)).Int64()
}

// IncrementFloat implements cache.Cache.
func (c *Cache) IncrementFloat(ctx context.Context, key string, amount float64, ttl *time.Duration) (float64, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		return 0, c.rdb.Del(ctx, key).Err()
	}
	s, err := incrByFloatScript.Run(ctx, c.rdb, []string{key},
		strconv.FormatFloat(amount, 'f', -1, 64), pxArg(ttl)).Text()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// SetIfHigher implements cache.Cache.
func (c *Cache) SetIfHigher(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	f, err := c.setIfCompare(ctx, key, strconv.FormatInt(value, 10), ttl, "hi")
	return int64(f), err
}

// SetIfHigherFloat implements cache.Cache.
func (c *Cache) SetIfHigherFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return c.setIfCompare(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), ttl, "hi")
}

// SetIfLower implements cache.Cache.
func (c *Cache) SetIfLower(ctx context.Context, key string, value int64, ttl *time.Duration) (int64, error) {
	f, err := c.setIfCompare(ctx, key, strconv.FormatInt(value, 10), ttl, "lo")
	return int64(f), err
}

// SetIfLowerFloat implements cache.Cache.
func (c *Cache) SetIfLowerFloat(ctx context.Context, key string, value float64, ttl *time.Duration) (float64, error) {
	return c.setIfCompare(ctx, key, strconv.FormatFloat(value, 'f', -1, 64), ttl, "lo")
}

func (c *Cache) setIfCompare(ctx context.Context, key, value string, ttl *time.Duration, cmp string) (float64, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		return 0, c.rdb.Del(ctx, key).Err()
	}
	s, err := setIfCompareScript.Run(ctx, c.rdb, []string{key}, value, pxArg(ttl), cmp).Text()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

// ListAdd implements cache.Cache.
func (c *Cache) ListAdd(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	if values == nil {
		return 0, cache.ErrInvalidArgument
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		if _, err := c.listRemove(ctx, key, values, ""); err != nil {
			return 0, err
		}
		return 0, nil
	}

	fields, err := encodeElements(values)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, nil
	}

	now := time.Now().UnixMilli()
	expireAt := int64(0)
	if ttl != nil {
		expireAt = now + ttl.Milliseconds()
	}
	args := make([]any, 0, len(fields)+2)
	args = append(args, strconv.FormatInt(now, 10), strconv.FormatInt(expireAt, 10))
	for _, f := range fields {
		args = append(args, f)
	}
	if err := listAddScript.Run(ctx, c.rdb, []string{key}, args...).Err(); err != nil {
		return 0, err
	}
	return len(fields), nil
}

// ListRemove implements cache.Cache.
func (c *Cache) ListRemove(ctx context.Context, key string, values []any, ttl *time.Duration) (int, error) {
	if err := validKey(key); err != nil {
		return 0, err
	}
	if values == nil {
		return 0, cache.ErrInvalidArgument
	}
	ttl = normalizeTTL(ttl)
	if ttl != nil && *ttl <= 0 {
		return 0, c.rdb.Del(ctx, key).Err()
	}
	return c.listRemove(ctx, key, values, pxArg(ttl))
}

func (c *Cache) listRemove(ctx context.Context, key string, values []any, px string) (int, error) {
	fields, err := encodeElements(values)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, nil
	}
	now := time.Now().UnixMilli()
	args := make([]any, 0, len(fields)+2)
	args = append(args, strconv.FormatInt(now, 10), px)
	for _, f := range fields {
		args = append(args, f)
	}
	n, err := listRemoveScript.Run(ctx, c.rdb, []string{key}, args...).Int64()
	if err != nil {
		if isWrongType(err) {
			return 0, nil
		}
		return 0, err
	}
	return int(n), nil
}

func encodeElements(values []any) ([]string, error) {
	fields := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		f, err := encode(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields, nil
}

// ---- removal ----

// Remove implements cache.Cache.
func (c *Cache) Remove(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	n, err := c.rdb.Del(ctx, key).Result()
	return n > 0, err
}

// RemoveAll implements cache.Cache. With no keys the backing database is
// flushed.
func (c *Cache) RemoveAll(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		n, err := c.rdb.DBSize(ctx).Result()
		if err != nil {
			return 0, err
		}
		return int(n), c.rdb.FlushDB(ctx).Err()
	}
	for _, k := range keys {
		if err := validKey(k); err != nil {
			return 0, err
		}
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	return int(n), err
}

// RemoveByPrefix implements cache.Cache, scanning in batches.
func (c *Cache) RemoveByPrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return c.RemoveAll(ctx)
	}
	var removed int
	iter := c.rdb.Scan(ctx, 0, escapeMatch(prefix)+"*", 512).Iterator()
	batch := make([]string, 0, 512)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := c.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	if len(batch) > 0 {
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}

// Close closes the underlying client connection.
func (c *Cache) Close() error { return c.rdb.Close() }

// ---- helpers ----

func expiration(ttl *time.Duration) time.Duration {
	if ttl == nil {
		return 0
	}
	return *ttl
}

func normalizeTTL(ttl *time.Duration) *time.Duration {
	if ttl != nil && *ttl == cache.NeverExpires {
		return nil
	}
	return ttl
}

func isWrongType(err error) bool {
	return err != nil && strings.Contains(err.Error(), "WRONGTYPE")
}

// escapeMatch escapes SCAN glob metacharacters so the prefix matches
// literally.
func escapeMatch(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)
	return r.Replace(s)
}
