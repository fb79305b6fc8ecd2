// Package middleware provides HTTP middleware for authentication, logging, and request processing.
package middleware

import (
	"context"
	"crypto/subtle"
	nethttp "net/http"
	"strings"

	pkglog "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ErrUnauthorized is returned when the access token is missing or wrong.
var ErrUnauthorized = errors.Unauthorized("UNAUTHORIZED", "missing or invalid access token")

// Auth 返回一个 Bearer Token 认证中间件
// accessToken 为空时不做校验（本地开发）
//
// 日志输出示例:
//
//	🔓 Rejected request with token: sk-1****************cdef | {"type":"auth","path":"/v1/completions"}
func Auth(accessToken string, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if accessToken == "" {
				return handler(ctx, req)
			}

			var (
				token string
				path  string
			)
			if tr, ok := transport.FromServerContext(ctx); ok {
				path = tr.Operation()
				if ht, ok := tr.(http.Transporter); ok {
					token = extractToken(ht.Request())
					path = ht.Request().URL.Path
				}
			}

			if !tokenMatches(token, accessToken) {
				logRejected(logger, token, path)
				return nil, ErrUnauthorized
			}

			return handler(ctx, req)
		}
	}
}

// AuthHandler guards a plain net/http handler with the same token check as Auth.
func AuthHandler(accessToken string, logger *pkglog.LogHelper) func(nethttp.HandlerFunc) nethttp.HandlerFunc {
	return func(next nethttp.HandlerFunc) nethttp.HandlerFunc {
		if accessToken == "" {
			return next
		}
		return func(w nethttp.ResponseWriter, r *nethttp.Request) {
			token := extractToken(r)
			if !tokenMatches(token, accessToken) {
				logRejected(logger, token, r.URL.Path)
				nethttp.Error(w, ErrUnauthorized.Message, nethttp.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
}

// extractToken 支持 "Authorization: Bearer {token}" 和 X-API-Key
func extractToken(req *nethttp.Request) string {
	if authHeader := req.Header.Get("Authorization"); authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(req.Header.Get("X-API-Key"))
}

func tokenMatches(got, want string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func logRejected(logger *pkglog.LogHelper, token, path string) {
	masked := "<empty>"
	if token != "" {
		masked = pkglog.MaskCredential(token)
	}
	logger.Auth("Rejected request with token: "+masked,
		"path", path,
		"key_hint", masked)
}
