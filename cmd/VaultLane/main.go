// Package main is the entry point of VaultLane service.
// It initializes the Kratos application with gRPC and HTTP servers.
package main

import (
	"context"
	"flag"
	"os"

	"VaultLane/internal/biz"
	"VaultLane/internal/conf"
	zapLogger "VaultLane/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "VaultLane"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server, mirror *biz.StatusMirror, monitor *biz.VaultMonitor, cc *conf.Cron) (*kratos.App, error) {
	var spec string
	if cc != nil {
		spec = cc.ReportSpec
	}
	reportCron, err := NewVaultReportCron(monitor, spec, logger)
	if err != nil {
		return nil, err
	}

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
		),
		// 状态镜像先于服务端口启动，晚于服务端口停止
		kratos.BeforeStart(func(context.Context) error {
			mirror.Start()
			return nil
		}),
		kratos.AfterStart(func(context.Context) error {
			reportCron.Start()
			return nil
		}),
		kratos.BeforeStop(func(context.Context) error {
			<-reportCron.Stop().Done()
			return nil
		}),
		kratos.AfterStop(func(context.Context) error {
			mirror.Stop()
			return nil
		}),
	), nil
}

func main() {
	flag.Parse()

	// Load configuration using Viper with environment variable and CLI flag support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize Zap logger from configuration
	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	// Create Kratos adapter for Zap logger
	logger := zapLogger.NewKratosAdapter(zapLog)

	// Add context fields to logger
	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)

	// Log startup configuration
	zapLogger.NewLogHelper(logger).Startup("VaultLane service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.env", bc.Log.Env,
		"http.addr", bc.Server.HTTP.Addr,
		"grpc.addr", bc.Server.GRPC.Addr,
		"vault.model", bc.Vault.Model,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Vault, bc.Cron, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
