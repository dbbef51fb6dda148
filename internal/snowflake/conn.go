// Package snowflake connects to the production warehouse and implements the admin,
// completion, and service status surfaces on top of SQL.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"
)

// Config holds the connection parameters.
type Config struct {
	Account        string
	User           string
	Password       string
	Token          string
	PrivateKeyPath string
	Role           string
	Warehouse      string
	Database       string
	Schema         string
	LoginTimeout   time.Duration
}

// Open connects with key-pair auth when a private key is configured, otherwise with the
// password (a programmatic access token is accepted in its place).
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sfCfg, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}

	dsn, err := sf.DSN(sfCfg)
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to snowflake account %s: %w", cfg.Account, err)
	}

	logger.Info("connected to snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("auth", authName(sfCfg.Authenticator)))
	return db, nil
}

func driverConfig(cfg Config) (*sf.Config, error) {
	if cfg.Account == "" || cfg.User == "" {
		return nil, fmt.Errorf("snowflake account and user are required")
	}

	sfCfg := &sf.Config{
		Account:      cfg.Account,
		User:         cfg.User,
		Role:         cfg.Role,
		Warehouse:    cfg.Warehouse,
		Database:     cfg.Database,
		Schema:       cfg.Schema,
		LoginTimeout: cfg.LoginTimeout,
	}

	switch {
	case cfg.PrivateKeyPath != "":
		key, err := LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		sfCfg.Authenticator = sf.AuthTypeJwt
		sfCfg.PrivateKey = key
	case cfg.Password != "":
		sfCfg.Password = cfg.Password
	case cfg.Token != "":
		sfCfg.Password = cfg.Token
	default:
		return nil, fmt.Errorf("snowflake credentials missing: set a private key, password, or token")
	}
	return sfCfg, nil
}

func authName(t sf.AuthType) string {
	if t == sf.AuthTypeJwt {
		return "keypair"
	}
	return "password"
}
