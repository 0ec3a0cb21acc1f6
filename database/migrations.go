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
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MigrationManager coordinates schema migrations and data initialization.
type MigrationManager struct {
	db          *bun.DB
	logger      Logger
	config      *Config
	environment string
	seedFS      fs.FS
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// NewMigrationManager constructs a new MigrationManager using the provided Bun
// database and logger. A nil cfg falls back to the config passed to InitDB, or
// to DefaultConfig. The seed environment defaults to the configured one.
func NewMigrationManager(db *bun.DB, logger Logger, cfg *Config) *MigrationManager {
	if cfg == nil {
		cfg = globalConfig
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	env := cfg.DataInitConfig.Environment
	if env == "" {
		env = "development"
	}
	return &MigrationManager{
		db:          db,
		logger:      logger,
		config:      cfg,
		environment: env,
	}
}

// SetEnvironment sets the environment used when initializing data from SQL.
func (mm *MigrationManager) SetEnvironment(env string) {
	mm.environment = env
}

// SetSeedFS makes data initialization read SQL files from fsys instead of
// the configured directory.
func (mm *MigrationManager) SetSeedFS(fsys fs.FS) {
	mm.seedFS = fsys
}

// RunMigrations creates the migration tracking table if needed and executes all
// registered migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// silent migration
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if mm.config.DataMigrateConfig.DropTablesOnStartup {
		if err := mm.dropBaseTables(ctx, mm.db); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		if _, err := mm.db.NewDropTable().Model((*Migration)(nil)).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop migrations table: %w", err)
		}
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed!")
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create base table structure",
			Up:          mm.createBaseTables,
			Down:        mm.dropBaseTables,
		},
	}
	if mm.config.DataMigrateConfig.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add table foreign key constraints",
			Up:          mm.addForeignKeys,
			Down:        mm.removeForeignKeys,
		})
	}
	if mm.config.DataInitConfig.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

func (mm *MigrationManager) inlineForeignKeys(db bun.IDB) bool {
	return mm.config.DataMigrateConfig.EnableForeignKey && db.Dialect().Name() == dialect.SQLite
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if mm.inlineForeignKeys(db) {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", getModelName(model), err)
		}
	}
	return nil
}

// dropBaseTables drops tables in reverse priority order so referencing
// tables go first.
func (mm *MigrationManager) dropBaseTables(ctx context.Context, db bun.IDB) error {
	models := RegisteredModelInstances()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", getModelName(models[i]), err)
		}
	}
	return nil
}

func (mm *MigrationManager) foreignKeyManager() *ConfigurableForeignKeyManager {
	return NewConfigurableForeignKeyManager(mm.logger, mm.config.DataMigrateConfig.ForeignKeyFile)
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkManager := mm.foreignKeyManager()
	if errs := fkManager.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			mm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
		}
		return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
	}
	return fkManager.AddAllForeignKeys(ctx, db)
}

func (mm *MigrationManager) removeForeignKeys(ctx context.Context, db bun.IDB) error {
	if db.Dialect().Name() == dialect.SQLite {
		return nil
	}
	fkManager := mm.foreignKeyManager()
	for _, fk := range fkManager.ListAllConstraints() {
		if err := fkManager.RemoveForeignKey(ctx, db, fk.Table, fk.GenerateConstraintName()); err != nil {
			return err
		}
	}
	return nil
}

func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	sqlManager := NewSQLInitManager(db, mm.environment)
	sqlManager.SetLogger(mm.logger)
	if mm.seedFS != nil {
		sqlManager.SetFS(mm.seedFS)
	} else if mm.config.DataInitConfig.Filepath != "" {
		sqlManager.SetSQLRootPath(mm.config.DataInitConfig.Filepath)
	}

	mm.logger.Info("Starting data initialization using SQL files", "environment", mm.environment)
	if err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// RollbackMigration runs the Down step of an applied migration and removes its
// record. Migrations without a Down step cannot be rolled back.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var item *MigrationItem
	for _, m := range mm.getAllMigrations() {
		if m.Version == version {
			m := m
			item = &m
			break
		}
	}
	if item == nil {
		return fmt.Errorf("unknown migration version: %s", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s cannot be rolled back", version)
	}
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*Migration)(nil)).Where("version = ?", version).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("migration %s is not applied", version)
		}
		return item.Down(ctx, tx)
	})
}
