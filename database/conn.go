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

	"github.com/uptrace/bun"
)

var (
	globalFactory *Factory
	globalConfig  *Config
	DB            *bun.DB
)

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() Manager {
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *Factory {
	return globalFactory
}

// InitDB initializes the global database using the provided configuration.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions initializes the database and optionally runs migrations.
// Seed data is loaded afterwards when AutoInitOnStartup is set.
func InitDatabaseWithOptions(cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	globalConfig = cfg
	globalFactory = NewDatabaseFactory()
	manager, err := globalFactory.CreateFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	ctx := context.Background()
	if err := globalFactory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	DB = manager.GetDB()
	DB.RegisterModel(RegisteredModelInstances()...)

	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := manager.InitData(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	return DB, nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	if globalFactory != nil {
		err := globalFactory.Close()
		globalFactory = nil
		DB = nil
		return err
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if globalFactory != nil {
		return globalFactory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if globalFactory != nil {
		return globalFactory.GetStats()
	}
	return &DBStats{}
}

func globalManager() (Manager, error) {
	if globalFactory == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	manager := globalFactory.GetManager()
	if manager == nil {
		return nil, fmt.Errorf("database manager not initialized")
	}
	return manager, nil
}

// RunMigrations executes database migrations on the global database.
func RunMigrations(ctx context.Context) error {
	manager, err := globalManager()
	if err != nil {
		return err
	}
	return manager.RunMigrations(ctx)
}

// InitData seeds initial data using the configured environment.
func InitData(ctx context.Context) error {
	env := "prod"
	if globalConfig != nil && globalConfig.DataInitConfig.Environment != "" {
		env = globalConfig.DataInitConfig.Environment
	}
	return InitDataWithSQL(ctx, env)
}

// InitDataWithSQL seeds initial data by executing SQL files for the environment.
func InitDataWithSQL(ctx context.Context, environment string) error {
	manager, err := globalManager()
	if err != nil {
		return err
	}
	db := manager.GetDB()
	if db == nil {
		return fmt.Errorf("database instance not initialized")
	}

	root := "configs/sql"
	if globalConfig != nil && globalConfig.DataInitConfig.Filepath != "" {
		root = globalConfig.DataInitConfig.Filepath
	}

	sqlManager := NewSQLInitManager(db, environment)
	sqlManager.SetSQLRootPath(root)
	return sqlManager.ExecuteInitialization(ctx)
}
