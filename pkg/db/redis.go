package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/go-redis/redis/v8"
)

// RedisStore is a Store backed by redis. Records are JSON values in one hash keyed by
// message id; a sorted set scored by timestamp orders them for listing.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot connect to redis server: %w", err)
	}
	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "relayer"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordsKey() string { return s.prefix + ":records" }
func (s *RedisStore) indexKey() string   { return s.prefix + ":records:by_time" }
func (s *RedisStore) heightsKey() string { return s.prefix + ":heights" }

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetRecord(ctx context.Context, messageID string) (*bridge.ProcessedMessageRecord, bool, error) {
	raw, err := s.client.HGet(ctx, s.recordsKey(), messageID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis HGET record %s: %w", messageID, err)
	}
	rec := new(bridge.ProcessedMessageRecord)
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", messageID, err)
	}
	return rec, true, nil
}

func (s *RedisStore) SaveRecord(ctx context.Context, rec *bridge.ProcessedMessageRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.MessageID, err)
	}

	score := strconv.FormatInt(rec.Timestamp.UnixMilli(), 10)
	err = saveRecordScript.Run(ctx, s.client, []string{s.recordsKey(), s.indexKey()}, rec.MessageID, raw, score).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis save record %s: %w", rec.MessageID, err)
	}
	return nil
}

// saveRecordScript writes a record unless a successful one is already stored
var saveRecordScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur and cjson.decode(cur)['success'] == true then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`)

func (s *RedisStore) ListRecords(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ZREVRANGE records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.recordsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HMGET records: %w", err)
	}

	out := make([]*bridge.ProcessedMessageRecord, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		rec := new(bridge.ProcessedMessageRecord)
		if err := json.Unmarshal([]byte(str), rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", ids[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) LoadHeight(ctx context.Context, chain string) (uint64, bool, error) {
	raw, err := s.client.HGet(ctx, s.heightsKey(), chain).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis HGET height %s: %w", chain, err)
	}
	h, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode height %s: %w", chain, err)
	}
	return h, true, nil
}

func (s *RedisStore) SaveHeight(ctx context.Context, chain string, height uint64) error {
	if err := s.client.HSet(ctx, s.heightsKey(), chain, strconv.FormatUint(height, 10)).Err(); err != nil {
		return fmt.Errorf("redis HSET height %s: %w", chain, err)
	}
	return nil
}
