/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

type envBinding struct {
	key   string
	apply func(c *ConnectionConfig, value string) error
}

func bind[V any](key string, parse func(string) (V, error), field func(c *ConnectionConfig) *V) envBinding {
	return envBinding{key: key, apply: func(c *ConnectionConfig, value string) error {
		v, err := parse(value)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}}
}

func parseString(s string) (string, error) { return s, nil }

func parseSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(s)
	return time.Duration(n) * time.Second, err
}

// envBindings are the DB_* variables that override connection settings.
// Durations are given in whole seconds.
var envBindings = []envBinding{
	bind("DB_TYPE", parseString, func(c *ConnectionConfig) *string { return &c.Type }),
	bind("DB_DSN", parseString, func(c *ConnectionConfig) *string { return &c.DSN }),
	bind("DB_HOST", parseString, func(c *ConnectionConfig) *string { return &c.Host }),
	bind("DB_PORT", strconv.Atoi, func(c *ConnectionConfig) *int { return &c.Port }),
	bind("DB_USERNAME", parseString, func(c *ConnectionConfig) *string { return &c.Username }),
	bind("DB_PASSWORD", parseString, func(c *ConnectionConfig) *string { return &c.Password }),
	bind("DB_NAME", parseString, func(c *ConnectionConfig) *string { return &c.DBName }),
	bind("DB_SSLMODE", parseString, func(c *ConnectionConfig) *string { return &c.SSLMode }),
	bind("DB_MAX_IDLE_CONNS", strconv.Atoi, func(c *ConnectionConfig) *int { return &c.MaxIdleConns }),
	bind("DB_MAX_OPEN_CONNS", strconv.Atoi, func(c *ConnectionConfig) *int { return &c.MaxOpenConns }),
	bind("DB_CONN_MAX_LIFETIME", parseSeconds, func(c *ConnectionConfig) *time.Duration { return &c.ConnMaxLifetime }),
	bind("DB_CONNECT_TIMEOUT", parseSeconds, func(c *ConnectionConfig) *time.Duration { return &c.ConnectTimeout }),
	bind("DB_ENABLE_RECONNECT", strconv.ParseBool, func(c *ConnectionConfig) *bool { return &c.EnableReconnect }),
	bind("DB_RECONNECT_INTERVAL", parseSeconds, func(c *ConnectionConfig) *time.Duration { return &c.ReconnectInterval }),
	bind("DB_MAX_RECONNECT_TRIES", strconv.Atoi, func(c *ConnectionConfig) *int { return &c.MaxReconnectTries }),
	bind("DB_HEALTH_CHECK_INTERVAL", parseSeconds, func(c *ConnectionConfig) *time.Duration { return &c.HealthCheckInterval }),
	bind("DB_ENABLE_QUERY_LOG", strconv.ParseBool, func(c *ConnectionConfig) *bool { return &c.EnableQueryLog }),
	bind("DB_SHOW_SQL", strconv.ParseBool, func(c *ConnectionConfig) *bool { return &c.ShowSQL }),
	bind("DB_SLOW_QUERY_TIME", parseSeconds, func(c *ConnectionConfig) *time.Duration { return &c.SlowQueryTime }),
}

// applyEnv copies the non-empty DB_* variables into c. Malformed values are
// logged and skipped.
func applyEnv(c *ConnectionConfig, logger Logger) {
	for _, b := range envBindings {
		value := os.Getenv(b.key)
		if value == "" {
			continue
		}
		if err := b.apply(c, value); err != nil {
			logger.Warn("Ignoring malformed environment variable", "key", b.key, "error", err)
		}
	}
}

// Factory builds the Manager of one configuration and forwards lifecycle
// calls to it.
type Factory struct {
	manager Manager
	logger  Logger
}

func NewDatabaseFactory() *Factory {
	return &Factory{logger: GetLogger()}
}

// CreateFromConfig loads ".env" from the working directory, applies the DB_*
// variables to config and returns its Manager. An unknown database type fails
// here, before any connection attempt.
func (f *Factory) CreateFromConfig(config *Config) (Manager, error) {
	if config == nil {
		return nil, errors.New("database configuration cannot be empty")
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("Skipping unreadable .env file", "error", err)
	}
	applyEnv(&config.ConnectionConfig, f.logger)
	if _, err := lookupDriver(config.ConnectionConfig.Type); err != nil {
		return nil, err
	}
	f.manager = NewDatabaseManager(config)
	f.manager.SetLogger(f.logger)
	return f.manager, nil
}

// InitializeDatabase connects the manager and, when runMigrations is set,
// migrates the schema.
func (f *Factory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return errors.New("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	f.logger.Info("Database initialized", "migrated", runMigrations)
	return nil
}

func (f *Factory) GetManager() Manager { return f.manager }

// GetDB returns nil until the manager has connected.
func (f *Factory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *Factory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *Factory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "database manager not created", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *Factory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
