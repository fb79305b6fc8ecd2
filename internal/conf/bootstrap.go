// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// MaxEnvKeys is the number of numbered credential variables probed at startup
// (GROQ_KEY_1 ... GROQ_KEY_10).
const MaxEnvKeys = 10

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with VAULTLANE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Credentials are collected from vault.keys followed by GROQ_KEY_1..GROQ_KEY_10
// (or the legacy VITE_GROQ_KEY_n names). Blank entries are kept here and
// filtered by the credential pool.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("VAULTLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "VAULTLANE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "VAULTLANE_DATA_REDIS_ADDR")
	_ = v.BindEnv("vault.encryption_key", "ENCRYPTION_KEY", "VAULTLANE_VAULT_ENCRYPTION_KEY")
	_ = v.BindEnv("vault.proxy_url", "GROQ_PROXY_URL", "VAULTLANE_VAULT_PROXY_URL")
	for i := 1; i <= MaxEnvKeys; i++ {
		_ = v.BindEnv(envKeyPath(i), fmt.Sprintf("GROQ_KEY_%d", i), fmt.Sprintf("VITE_GROQ_KEY_%d", i))
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &Server_HTTP{
				Network:     v.GetString("server.http.network"),
				Addr:        v.GetString("server.http.addr"),
				Timeout:     durationpb.New(v.GetDuration("server.http.timeout")),
				AccessToken: v.GetString("server.http.access_token"),
			},
			GRPC: &Server_GRPC{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: durationpb.New(v.GetDuration("server.grpc.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Vault: &Vault{
			Keys:          collectKeys(v),
			BaseURL:       v.GetString("vault.base_url"),
			Model:         v.GetString("vault.model"),
			Temperature:   v.GetFloat64("vault.temperature"),
			Timeout:       durationpb.New(v.GetDuration("vault.timeout")),
			ProxyURL:      v.GetString("vault.proxy_url"),
			EncryptionKey: v.GetString("vault.encryption_key"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		Cron: &Cron{
			ReportSpec: v.GetString("cron.report_spec"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 2*time.Minute)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9000")
	v.SetDefault("server.grpc.timeout", 10*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// data.database.source 为空时不启用审计日志

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("vault.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("vault.model", "llama-3.3-70b-versatile")
	v.SetDefault("vault.temperature", 0.7)
	v.SetDefault("vault.timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cron.report_spec", "0 */5 * * * *")
}

// collectKeys merges vault.keys with the numbered environment variables,
// preserving order. Empty slots are kept as "" so indices stay meaningful.
func collectKeys(v *viper.Viper) []string {
	keys := append([]string{}, v.GetStringSlice("vault.keys")...)
	for i := 1; i <= MaxEnvKeys; i++ {
		if v.IsSet(envKeyPath(i)) {
			keys = append(keys, v.GetString(envKeyPath(i)))
		}
	}
	return keys
}

func envKeyPath(i int) string {
	return fmt.Sprintf("vault.env_keys.key_%d", i)
}

// Validate checks that all configuration fields are present and valid.
// It returns an error listing every invalid field. An empty credential list is
// not rejected here; the credential pool reports it as a configuration error.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Vault == nil {
		invalid = append(invalid, "vault")
	} else {
		if bc.Vault.BaseURL == "" {
			invalid = append(invalid, "vault.base_url")
		}
		if bc.Vault.Model == "" {
			invalid = append(invalid, "vault.model")
		}
		if bc.Vault.Temperature < 0 || bc.Vault.Temperature > 2 {
			invalid = append(invalid, "vault.temperature (must be within [0, 2])")
		}
		if bc.Vault.EncryptionKey != "" && len(bc.Vault.EncryptionKey) != 32 {
			invalid = append(invalid, "vault.encryption_key (ENCRYPTION_KEY must be 32 bytes)")
		}
	}

	if bc.Log == nil || bc.Log.Level == "" {
		invalid = append(invalid, "log.level")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}
