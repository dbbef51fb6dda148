package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/logsearch/internal/model"
)

const (
	backendSnowflake = "snowflake"
	backendDuckDB    = "duckdb"

	defaultAddr       = "127.0.0.1:8080"
	defaultLogLevel   = "info"
	defaultLogMaxSize = 100
	defaultLogBackups = 5
	defaultLogMaxAge  = 30
)

// appConfig is internal runtime configuration.
type appConfig struct {
	Backend      string        `mapstructure:"backend" validate:"required,oneof=snowflake duckdb"`
	Addr         string        `mapstructure:"addr" validate:"required,hostname_port"`
	QueryTimeout time.Duration `mapstructure:"query-timeout" validate:"gt=0"`

	LogTable      string `mapstructure:"log-table" validate:"required"`
	IndexedColumn string `mapstructure:"indexed-column" validate:"required"`
	Analyzer      string `mapstructure:"analyzer" validate:"required"`
	WarehouseName string `mapstructure:"warehouse-name" validate:"required"`

	SnowflakeAccount    string `mapstructure:"snowflake-account" validate:"required_if=Backend snowflake"`
	SnowflakeUser       string `mapstructure:"snowflake-user" validate:"required_if=Backend snowflake"`
	SnowflakePassword   string `mapstructure:"snowflake-password"`
	SnowflakeToken      string `mapstructure:"snowflake-token"`
	SnowflakePrivateKey string `mapstructure:"snowflake-private-key"`
	SnowflakeRole       string `mapstructure:"snowflake-role"`
	SnowflakeDatabase   string `mapstructure:"snowflake-database"`
	SnowflakeSchema     string `mapstructure:"snowflake-schema"`

	CortexURL         string `mapstructure:"cortex-url" validate:"omitempty,url"`
	CortexDatabase    string `mapstructure:"cortex-database"`
	CortexSchema      string `mapstructure:"cortex-schema"`
	CortexService     string `mapstructure:"cortex-service"`
	CortexSourceTable string `mapstructure:"cortex-source-table"`

	CompletionModel  string `mapstructure:"completion-model"`
	AnalysisLanguage string `mapstructure:"analysis-language"`

	DBPath        string `mapstructure:"db-path" validate:"required_if=Backend duckdb"`
	SeedFile      string `mapstructure:"seed-file"`
	RetentionDays int    `mapstructure:"retention-days" validate:"gte=0"`

	AdminUser         string `mapstructure:"admin-user"`
	AdminPasswordHash string `mapstructure:"admin-password-hash"`
	Gzip              bool   `mapstructure:"gzip"`
	SecureCookies     bool   `mapstructure:"secure-cookies"`

	SessionTTL      time.Duration `mapstructure:"session-ttl" validate:"gt=0"`
	SessionCapacity int           `mapstructure:"session-capacity" validate:"gt=0"`

	LogLevel      string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	LogFile       string `mapstructure:"log-file"`
	LogMaxSizeMB  int    `mapstructure:"log-max-size" validate:"gte=0"`
	LogMaxBackups int    `mapstructure:"log-max-backups" validate:"gte=0"`
	LogMaxAgeDays int    `mapstructure:"log-max-age" validate:"gte=0"`
	LogCompress   bool   `mapstructure:"log-compress"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// loadConfig layers defaults, the YAML config file, .env, and LOGSEARCH_* variables.
func loadConfig(configPath, envFile string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("LOGSEARCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("backend", backendSnowflake)
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("log-table", model.DefaultLogTable)
	v.SetDefault("indexed-column", model.DefaultIndexedColumn)
	v.SetDefault("analyzer", model.DefaultAnalyzer)
	v.SetDefault("warehouse-name", model.DefaultWarehouseName)
	v.SetDefault("snowflake-account", "")
	v.SetDefault("snowflake-user", "")
	v.SetDefault("snowflake-password", "")
	v.SetDefault("snowflake-token", "")
	v.SetDefault("snowflake-private-key", "")
	v.SetDefault("snowflake-role", "")
	v.SetDefault("snowflake-database", model.DefaultSemanticDatabase)
	v.SetDefault("snowflake-schema", model.DefaultSemanticSchema)
	v.SetDefault("cortex-url", "")
	v.SetDefault("cortex-database", model.DefaultSemanticDatabase)
	v.SetDefault("cortex-schema", model.DefaultSemanticSchema)
	v.SetDefault("cortex-service", model.DefaultSemanticService)
	v.SetDefault("cortex-source-table", model.DefaultSemanticTable)
	v.SetDefault("completion-model", model.DefaultCompletionModel)
	v.SetDefault("analysis-language", model.DefaultAnalysisLanguage)
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "logsearch", "logsearch.duckdb"))
	v.SetDefault("seed-file", "")
	v.SetDefault("retention-days", 0)
	v.SetDefault("admin-user", "admin")
	v.SetDefault("admin-password-hash", "")
	v.SetDefault("gzip", true)
	v.SetDefault("secure-cookies", false)
	v.SetDefault("session-ttl", model.DefaultSessionTTL)
	v.SetDefault("session-capacity", model.DefaultSessionCapacity)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-file", "")
	v.SetDefault("log-max-size", defaultLogMaxSize)
	v.SetDefault("log-max-backups", defaultLogBackups)
	v.SetDefault("log-max-age", defaultLogMaxAge)
	v.SetDefault("log-compress", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "logsearch", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.SeedFile = expandHome(cfg.SeedFile, home)
	cfg.SnowflakePrivateKey = expandHome(cfg.SnowflakePrivateKey, home)
	cfg.LogFile = expandHome(cfg.LogFile, home)

	if err := configValidator.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Backend == backendSnowflake && cfg.SnowflakePassword == "" && cfg.SnowflakeToken == "" && cfg.SnowflakePrivateKey == "" {
		return cfg, errors.New("invalid config: snowflake backend needs snowflake-password, snowflake-token, or snowflake-private-key")
	}
	return cfg, nil
}

// semanticSearchEnabled reports whether the Cortex REST API can authenticate. It takes a
// programmatic access token or a key-pair JWT; a login password is only good for SQL.
func (c appConfig) semanticSearchEnabled() bool {
	return c.SnowflakeToken != "" || c.SnowflakePrivateKey != ""
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
