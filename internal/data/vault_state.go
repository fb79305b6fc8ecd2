package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	// vaultStatusKey 凭证状态哈希：field=下标, value=IDLE|ACTIVE|COOLDOWN
	vaultStatusKey = "vault:status"
	// throttleWindow 限流计数窗口
	throttleWindow = 60 * time.Second
)

func getThrottleKey(index int) string {
	return fmt.Sprintf("vault:throttle:%d", index)
}

// VaultStateRepo implements biz.VaultStateRepo on Redis.
type VaultStateRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewVaultStateRepo creates a new vault state repository.
func NewVaultStateRepo(d *Data, logger log.Logger) *VaultStateRepo {
	var rdb *redis.Client
	if d != nil {
		rdb = d.redisClient
	}
	return &VaultStateRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// Available reports whether a Redis client is configured.
func (r *VaultStateRepo) Available() bool {
	return r.rdb != nil
}

// SaveSnapshot replaces the status hash with snapshot.
func (r *VaultStateRepo) SaveSnapshot(ctx context.Context, snapshot map[int]string) error {
	if r.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}

	values := make(map[string]interface{}, len(snapshot))
	for index, status := range snapshot {
		values[strconv.Itoa(index)] = status
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, vaultStatusKey)
	if len(values) > 0 {
		pipe.HSet(ctx, vaultStatusKey, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save vault status: %w", err)
	}
	return nil
}

// LoadSnapshot returns the mirrored status hash. Missing hash yields an empty map.
func (r *VaultStateRepo) LoadSnapshot(ctx context.Context) (map[int]string, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.rdb.HGetAll(ctx, vaultStatusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load vault status: %w", err)
	}

	snapshot := make(map[int]string, len(raw))
	for field, status := range raw {
		index, err := strconv.Atoi(field)
		if err != nil {
			r.logger.Warnf("Ignoring malformed vault status field %q", field)
			continue
		}
		snapshot[index] = status
	}
	return snapshot, nil
}

// IncrementThrottle increments the throttle counter for a credential.
// Uses Redis INCR with a 60 second expiration set on first increment.
func (r *VaultStateRepo) IncrementThrottle(ctx context.Context, index int) (int64, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	key := getThrottleKey(index)

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment throttle counter: %w", err)
	}

	if count == 1 {
		if err := r.rdb.Expire(ctx, key, throttleWindow).Err(); err != nil {
			r.logger.Warnf("Failed to set throttle expiration for credential %d: %v", index, err)
		}
	}

	return count, nil
}

// ThrottleCounts returns the throttle counters of credentials [0, size).
// Missing keys count as 0.
func (r *VaultStateRepo) ThrottleCounts(ctx context.Context, size int) (map[int]int64, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	counts := make(map[int]int64, size)
	if size <= 0 {
		return counts, nil
	}

	keys := make([]string, size)
	for i := range keys {
		keys[i] = getThrottleKey(i)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get throttle counters: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse throttle counter for credential %d: %w", i, err)
		}
		counts[i] = n
	}
	return counts, nil
}
