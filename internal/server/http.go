package server

import (
	"VaultLane/internal/conf"
	"VaultLane/internal/server/middleware"
	"VaultLane/internal/service"
	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, vaultService *service.VaultService, metrics *Metrics, logger log.Logger) *http.Server {
	// 创建增强的日志辅助器
	logHelper := pkglog.NewLogHelper(logger)

	var accessToken string
	if c.HTTP != nil {
		accessToken = c.HTTP.AccessToken
	}

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),             // 请求日志中间件：Request ID、耗时、状态码
			middleware.Auth(accessToken, logHelper), // 认证中间件：Bearer / X-API-Key
		),
	}
	if c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout != nil {
			opts = append(opts, http.Timeout(c.HTTP.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)

	// Register HTTP services
	service.RegisterVaultServiceHTTPServer(srv, vaultService)
	// SSE 不经过 Kratos 中间件链，单独做认证
	service.RegisterVaultEventsHandler(srv, vaultService, middleware.AuthHandler(accessToken, logHelper))

	if metrics != nil {
		srv.Handle("/metrics", metrics.Handler())
	}

	return srv
}
