// Package data provides data access layer implementations.
// Both stores are optional: Redis mirrors vault status and MySQL keeps the
// invocation audit log.
package data

import (
	"VaultLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient 为 nil 时状态镜像关闭
	redisClient *redis.Client
	// db 为 nil 时审计日志关闭
	db *gorm.DB
}

// NewData creates a new Data instance with all data layer dependencies.
// Missing stores do not prevent application startup (graceful degradation).
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, db *gorm.DB) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, vault status mirror will be unavailable")
	}
	if db == nil {
		helper.Warn("MySQL client is nil, invocation audit log will be unavailable")
	}

	d := &Data{
		redisClient: rdb,
		db:          db,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// 连接由 NewRedisClient / NewMySQLClient 的 cleanup 关闭
	}

	return d, cleanup, nil
}

// GetRedisClient returns the Redis client, or nil when disabled.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}

// GetDB returns the GORM client, or nil when disabled.
func (d *Data) GetDB() *gorm.DB {
	return d.db
}
