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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const defaultConnectTimeout = 30 * time.Second

// driver opens one kind of database.
type driver struct {
	sqlName string
	dialect func() schema.Dialect
	dsn     func(c *ConnectionConfig) string
}

var mysqlDriver = driver{
	sqlName: "mysql",
	dialect: func() schema.Dialect { return mysqldialect.New() },
	dsn:     mysqlDSN,
}

var postgresDriver = driver{
	sqlName: "postgres",
	dialect: func() schema.Dialect { return pgdialect.New() },
	dsn:     postgresDSN,
}

var sqliteDriver = driver{
	sqlName: sqliteshim.ShimName,
	dialect: func() schema.Dialect { return sqlitedialect.New() },
	dsn:     sqliteDSN,
}

var drivers = map[string]driver{
	"mysql":      mysqlDriver,
	"postgres":   postgresDriver,
	"postgresql": postgresDriver,
	"sqlite":     sqliteDriver,
	"sqlite3":    sqliteDriver,
}

// SupportedTypes returns the accepted ConnectionConfig.Type values.
func SupportedTypes() []string {
	types := make([]string, 0, len(drivers))
	for name := range drivers {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

func lookupDriver(typ string) (driver, error) {
	d, ok := drivers[strings.ToLower(strings.TrimSpace(typ))]
	if !ok {
		return driver{}, fmt.Errorf("unsupported database type %q, supported types: %s",
			typ, strings.Join(SupportedTypes(), ", "))
	}
	return d, nil
}

func mysqlDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	return cfg.FormatDSN()
}

// postgresDSN defaults sslmode to "disable".
func postgresDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.SSLMode == "" {
		params.Set("sslmode", "disable")
	}
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: params.Encode(),
	}
	return u.String()
}

// sqliteDSN opens the file "<dbname>.db" unless DSN is set, e.g.
// "file::memory:?cache=shared".
func sqliteDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.DBName + ".db"
}

type manager struct {
	cfg *Config

	mu     sync.RWMutex
	db     *bun.DB
	logger Logger
	stop   context.CancelFunc
}

// NewDatabaseManager returns a Manager for cfg, or for DefaultConfig when cfg
// is nil. Migrations and seeding read their settings from the same cfg.
func NewDatabaseManager(cfg *Config) Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &manager{cfg: cfg, logger: GetLogger()}
}

func (m *manager) conn() *ConnectionConfig { return &m.cfg.ConnectionConfig }

func (m *manager) log() Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

func (m *manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = GetLogger()
	}
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Connect opens the pool once. With a HealthCheckInterval it also starts the
// loop that watches the pool until Disconnect.
func (m *manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return nil
	}
	db, err := m.open(ctx)
	if err != nil {
		return err
	}
	m.db = db

	c := m.conn()
	if c.HealthCheckInterval > 0 {
		watchCtx, stop := context.WithCancel(context.Background())
		m.stop = stop
		go m.watch(watchCtx, c.HealthCheckInterval)
	}
	m.logger.Info("Database connected", "type", c.Type, "host", c.Host, "dbname", c.DBName)
	return nil
}

// open creates a pool with the configured limits and query hooks and waits for
// its first ping.
func (m *manager) open(ctx context.Context) (*bun.DB, error) {
	c := m.conn()
	drv, err := lookupDriver(c.Type)
	if err != nil {
		return nil, err
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	sqlDB, err := sql.Open(drv.sqlName, drv.dsn(c))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", c.Type, err)
	}
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, drv.dialect())
	for _, hook := range queryHooks(c, m.logger) {
		db.AddQueryHook(hook)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", c.Type, err)
	}
	return db, nil
}

func (m *manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	if err != nil {
		m.logger.Error("Closing database failed", "error", err)
		return err
	}
	m.logger.Info("Database connection closed")
	return nil
}

func (m *manager) Reconnect(ctx context.Context) error {
	m.log().Info("Reconnecting to the database")
	if err := m.Disconnect(); err != nil {
		m.log().Warn("Dropping the old pool failed", "error", err)
	}
	return m.Connect(ctx)
}

// replace swaps in a freshly opened pool without stopping the watch loop.
func (m *manager) replace(ctx context.Context) error {
	m.mu.RLock()
	db, err := m.open(ctx)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	m.mu.Lock()
	old := m.db
	if old == nil {
		m.mu.Unlock()
		return db.Close()
	}
	m.db = db
	m.mu.Unlock()
	return old.Close()
}

// watch checks the pool every interval. With EnableReconnect an unhealthy
// pool is replaced after ReconnectInterval; the loop gives up after
// MaxReconnectTries failed replacements in a row.
func (m *manager) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if m.HealthCheck(ctx).Healthy {
			failures = 0
			continue
		}
		c := m.conn()
		if !c.EnableReconnect {
			continue
		}
		if failures >= c.MaxReconnectTries {
			m.log().Error("Giving up on reconnecting", "tries", failures)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.ReconnectInterval):
		}
		failures++
		if err := m.replace(ctx); err != nil {
			m.log().Warn("Reconnect failed", "try", failures, "error", err)
			continue
		}
		m.log().Info("Reconnected", "try", failures)
		failures = 0
	}
}

func (m *manager) Ping(ctx context.Context) error {
	db := m.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (m *manager) GetDB() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *manager) GetSQLDB() *sql.DB {
	if db := m.GetDB(); db != nil {
		return db.DB
	}
	return nil
}

func (m *manager) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{LastCheckTime: time.Now()}
	db := m.GetDB()
	if db == nil {
		status.LastError = ErrNotConnected.Error()
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(status.LastCheckTime)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	stats := db.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (m *manager) GetStats() *DBStats {
	db := m.GetDB()
	if db == nil {
		return &DBStats{}
	}
	s := db.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

func (m *manager) migrations() (*MigrationManager, error) {
	db := m.GetDB()
	if db == nil {
		return nil, ErrNotConnected
	}
	return NewMigrationManager(db, m.log(), m.cfg), nil
}

func (m *manager) RunMigrations(ctx context.Context) error {
	mm, err := m.migrations()
	if err != nil {
		return err
	}
	return mm.RunMigrations(ctx)
}

func (m *manager) InitData(ctx context.Context) error {
	mm, err := m.migrations()
	if err != nil {
		return err
	}
	return mm.InitData(ctx)
}
