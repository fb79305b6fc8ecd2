package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the root configuration of VaultLane.
type Bootstrap struct {
	Server *Server
	Data   *Data
	Vault  *Vault
	Log    *Log
	Cron   *Cron
}

// Server holds transport settings.
type Server struct {
	HTTP *Server_HTTP
	GRPC *Server_GRPC
}

// Server_HTTP configures the HTTP listener.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
	// AccessToken 非空时，/v1/* 需要 Bearer 认证
	AccessToken string
}

// Server_GRPC configures the gRPC listener (health service only).
type Server_GRPC struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage settings. Both backends are optional.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database configures the MySQL invocation audit log.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis configures the vault status mirror.
type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Vault configures the credential pool and the upstream endpoint.
type Vault struct {
	// Keys 原始凭证列表（可能包含空值，由凭证池过滤）
	Keys          []string
	BaseURL       string
	Model         string
	Temperature   float64
	Timeout       *durationpb.Duration
	ProxyURL      string
	EncryptionKey string
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Cron configures background jobs.
type Cron struct {
	ReportSpec string
}
