package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupVaultStateRepo creates a VaultStateRepo backed by miniredis
func setupVaultStateRepo(t *testing.T) (*VaultStateRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewVaultStateRepo(&Data{redisClient: client}, log.DefaultLogger), mr
}

func TestVaultStateRepo_SaveAndLoadSnapshot(t *testing.T) {
	repo, mr := setupVaultStateRepo(t)
	ctx := context.Background()

	require.True(t, repo.Available())
	require.NoError(t, repo.SaveSnapshot(ctx, map[int]string{0: "IDLE", 1: "COOLDOWN", 2: "ACTIVE"}))

	assert.Equal(t, "COOLDOWN", mr.HGet("vault:status", "1"))

	snapshot, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "IDLE", 1: "COOLDOWN", 2: "ACTIVE"}, snapshot)

	// 新快照整体替换旧快照
	require.NoError(t, repo.SaveSnapshot(ctx, map[int]string{0: "ACTIVE"}))
	snapshot, err = repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "ACTIVE"}, snapshot)
}

func TestVaultStateRepo_LoadSnapshotSkipsMalformedFields(t *testing.T) {
	repo, mr := setupVaultStateRepo(t)
	mr.HSet("vault:status", "0", "IDLE")
	mr.HSet("vault:status", "oops", "ACTIVE")

	snapshot, err := repo.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "IDLE"}, snapshot)
}

func TestVaultStateRepo_IncrementThrottle(t *testing.T) {
	repo, mr := setupVaultStateRepo(t)
	ctx := context.Background()

	count, err := repo.IncrementThrottle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.IncrementThrottle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, 60*time.Second, mr.TTL("vault:throttle:2"))

	// 窗口过期后计数归零
	mr.FastForward(61 * time.Second)
	counts, err := repo.ThrottleCounts(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestVaultStateRepo_ThrottleCounts(t *testing.T) {
	repo, _ := setupVaultStateRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.IncrementThrottle(ctx, 0)
		require.NoError(t, err)
	}
	_, err := repo.IncrementThrottle(ctx, 2)
	require.NoError(t, err)

	counts, err := repo.ThrottleCounts(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{0: 3, 2: 1}, counts)

	counts, err = repo.ThrottleCounts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestVaultStateRepo_ThrottleCountsMalformedValue(t *testing.T) {
	repo, mr := setupVaultStateRepo(t)
	require.NoError(t, mr.Set("vault:throttle:0", "not-a-number"))

	_, err := repo.ThrottleCounts(context.Background(), 1)
	assert.Error(t, err)
}

func TestVaultStateRepo_WithoutRedis(t *testing.T) {
	repo := NewVaultStateRepo(&Data{}, log.DefaultLogger)
	ctx := context.Background()

	assert.False(t, repo.Available())
	assert.Error(t, repo.SaveSnapshot(ctx, map[int]string{0: "IDLE"}))
	_, err := repo.LoadSnapshot(ctx)
	assert.Error(t, err)
	_, err = repo.IncrementThrottle(ctx, 0)
	assert.Error(t, err)
	_, err = repo.ThrottleCounts(ctx, 1)
	assert.Error(t, err)

	assert.False(t, NewVaultStateRepo(nil, log.DefaultLogger).Available())
}

func TestVaultStateRepo_RedisDown(t *testing.T) {
	repo, mr := setupVaultStateRepo(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, repo.SaveSnapshot(ctx, map[int]string{0: "IDLE"}))
	_, err := repo.IncrementThrottle(ctx, 0)
	assert.Error(t, err)
}
