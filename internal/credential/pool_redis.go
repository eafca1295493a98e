package credential

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPool is the shared, cross-instance credential pool backed by
// Redis. Load per credential is tracked as a sorted set (ZSET) of
// meeting_id -> expiry unix-seconds under key "{prefix}:cred:{index}",
// and the current assignment for a meeting is a string key
// "{prefix}:meeting:{meetingID}" holding the assigned index. Both
// operations are Lua EVAL scripts so the sweep-then-pick-least-loaded
// sequence is atomic across controller instances.
type RedisPool struct {
	rdb       *redis.Client
	prefix    string
	totalKeys int
	maxPerKey int
	ttlSecs   int64

	allocateScript *redis.Script
	releaseScript  *redis.Script
}

// NewRedisPool constructs a RedisPool. ttlSeconds bounds how long an
// assignment survives without being refreshed by another Allocate call,
// so a crashed worker's credential is reclaimed automatically.
func NewRedisPool(rdb *redis.Client, prefix string, totalKeys, maxPerKey int, ttlSeconds int64) *RedisPool {
	return &RedisPool{
		rdb:            rdb,
		prefix:         prefix,
		totalKeys:      totalKeys,
		maxPerKey:      maxPerKey,
		ttlSecs:        ttlSeconds,
		allocateScript: redis.NewScript(allocateLua),
		releaseScript:  redis.NewScript(releaseLua),
	}
}

// allocateLua -- ALLOCATE_SCRIPT
// KEYS: none (key names are built from ARGV since they're dynamic per index)
// ARGV[1] = meeting_id
// ARGV[2] = total_keys
// ARGV[3] = max_per_key
// ARGV[4] = ttl_seconds
// ARGV[5] = key_prefix
//
// Returns the allocated credential index, or -1 if exhausted.
const allocateLua = `
-- ALLOCATE_SCRIPT
local meeting_id = ARGV[1]
local total_keys = tonumber(ARGV[2])
local max_per_key = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local prefix = ARGV[5]

local now = redis.call('TIME')[1]

local meeting_key = prefix .. ':meeting:' .. meeting_id
local existing = redis.call('GET', meeting_key)
if existing then
	local cred_key = prefix .. ':cred:' .. existing
	redis.call('ZADD', cred_key, now + ttl, meeting_id)
	redis.call('SET', meeting_key, existing, 'EX', ttl)
	return tonumber(existing)
end

local best = -1
local best_load = -1
for i = 0, total_keys - 1 do
	local cred_key = prefix .. ':cred:' .. i
	redis.call('ZREMRANGEBYSCORE', cred_key, '-inf', now)
	local load = redis.call('ZCARD', cred_key)
	if load < max_per_key then
		if best == -1 or load < best_load or (load == best_load and i < best) then
			best = i
			best_load = load
		end
	end
end

if best == -1 then
	return -1
end

local cred_key = prefix .. ':cred:' .. best
redis.call('ZADD', cred_key, now + ttl, meeting_id)
redis.call('SET', meeting_key, best, 'EX', ttl)
return best
`

// releaseLua -- RELEASE_SCRIPT
// ARGV[1] = meeting_id, ARGV[2] = key_prefix
// Returns 1 if an assignment was removed, 0 otherwise.
const releaseLua = `
-- RELEASE_SCRIPT
local meeting_id = ARGV[1]
local prefix = ARGV[2]

local meeting_key = prefix .. ':meeting:' .. meeting_id
local existing = redis.call('GET', meeting_key)
if not existing then
	return 0
end

local cred_key = prefix .. ':cred:' .. existing
redis.call('ZREM', cred_key, meeting_id)
redis.call('DEL', meeting_key)
return 1
`

func (p *RedisPool) Allocate(ctx context.Context, meetingID string) (int, error) {
	res, err := p.allocateScript.Run(ctx, p.rdb, nil,
		meetingID, p.totalKeys, p.maxPerKey, p.ttlSecs, p.prefix).Int()
	if err != nil {
		return 0, fmt.Errorf("credential allocate: %w", err)
	}
	if res < 0 {
		return 0, ErrExhausted
	}
	return res, nil
}

func (p *RedisPool) Release(ctx context.Context, meetingID string) (bool, error) {
	res, err := p.releaseScript.Run(ctx, p.rdb, nil, meetingID, p.prefix).Int()
	if err != nil {
		return false, fmt.Errorf("credential release: %w", err)
	}
	return res == 1, nil
}

func (p *RedisPool) Status(ctx context.Context) ([]Status, error) {
	out := make([]Status, p.totalKeys)
	for i := 0; i < p.totalKeys; i++ {
		credKey := fmt.Sprintf("%s:cred:%d", p.prefix, i)
		n, err := p.rdb.ZCard(ctx, credKey).Result()
		if err != nil {
			return nil, fmt.Errorf("credential status: %w", err)
		}
		out[i] = Status{Index: i, Meetings: int(n), Available: int(n) < p.maxPerKey}
	}
	return out, nil
}
