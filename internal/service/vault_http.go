package service

import (
	"context"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationVaultServiceComplete = "/vaultlane.v1.VaultService/Complete"
	OperationVaultServiceGetVault = "/vaultlane.v1.VaultService/GetVault"
)

// VaultServiceHTTPServer is the HTTP surface of VaultService.
type VaultServiceHTTPServer interface {
	Complete(context.Context, *CompleteRequest) (*CompleteReply, error)
	GetVault(context.Context, *GetVaultRequest) (*GetVaultReply, error)
}

// RegisterVaultServiceHTTPServer registers the JSON routes on s. They run
// through the server middleware chain.
func RegisterVaultServiceHTTPServer(s *http.Server, srv VaultServiceHTTPServer) {
	r := s.Route("/")
	r.POST("/v1/completions", _VaultService_Complete0_HTTP_Handler(srv))
	r.GET("/v1/vault", _VaultService_GetVault0_HTTP_Handler(srv))
}

// RegisterVaultEventsHandler registers the SSE stream. guard wraps the raw
// handler since plain handlers bypass the Kratos middleware chain.
func RegisterVaultEventsHandler(s *http.Server, srv *VaultService, guard func(nethttp.HandlerFunc) nethttp.HandlerFunc) {
	h := srv.StreamEvents
	if guard != nil {
		h = guard(h)
	}
	s.HandleFunc("/v1/vault/events", h)
}

func _VaultService_Complete0_HTTP_Handler(srv VaultServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CompleteRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationVaultServiceComplete)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Complete(ctx, req.(*CompleteRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*CompleteReply)
		return ctx.Result(200, reply)
	}
}

func _VaultService_GetVault0_HTTP_Handler(srv VaultServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetVaultRequest
		http.SetOperation(ctx, OperationVaultServiceGetVault)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetVault(ctx, req.(*GetVaultRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*GetVaultReply)
		return ctx.Result(200, reply)
	}
}
