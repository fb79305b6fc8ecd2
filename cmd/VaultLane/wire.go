//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"VaultLane/internal/biz"
	"VaultLane/internal/conf"
	"VaultLane/internal/data"
	"VaultLane/internal/server"
	"VaultLane/internal/service"
	"VaultLane/pkg/groq"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Vault, *conf.Cron, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newGroqClient,
		newApp,
	))
}

// newGroqClient creates the upstream client from the vault config.
func newGroqClient(vc *conf.Vault) (*groq.Client, error) {
	if vc == nil {
		return groq.NewClient("", "", 0)
	}
	return groq.NewClient(vc.BaseURL, vc.ProxyURL, vc.Timeout.AsDuration())
}
