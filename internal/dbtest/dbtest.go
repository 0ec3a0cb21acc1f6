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

// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
)

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Env is a database with one open transaction. All statements of a test go
// through Tx, which is rolled back when the test ends.
type Env struct {
	DB      *bun.DB
	Tx      bun.Tx
	Queries *database.QueryCounter
}

// Config returns a single-connection in-memory SQLite configuration private
// to tb.
func Config(tb testing.TB) *database.Config {
	cfg := database.DefaultConfig()
	conn := &cfg.ConnectionConfig
	conn.Type = "sqlite"
	conn.DSN = "file:" + nonIdent.ReplaceAllString(tb.Name(), "_") + "?mode=memory&cache=shared"
	conn.MaxOpenConns = 1
	conn.MaxIdleConns = 1
	conn.ConnMaxLifetime = 0
	conn.ConnMaxIdleTime = 0
	conn.HealthCheckInterval = 0
	conn.SlowQueryTime = 0
	cfg.DataMigrateConfig.EnableForeignKey = true
	return cfg
}

// OpenDB returns a migrated database closed at the end of the test.
func OpenDB(tb testing.TB) *bun.DB {
	tb.Helper()
	ctx := context.Background()
	manager := database.NewDatabaseManager(Config(tb))
	require.NoError(tb, manager.Connect(ctx))
	tb.Cleanup(func() { _ = manager.Disconnect() })
	require.NoError(tb, manager.RunMigrations(ctx))
	return manager.GetDB()
}

// Open returns a migrated database with a transaction rolled back at the end of
// the test. The database has a single connection, so only Tx may be used
// while the test runs.
func Open(tb testing.TB) *Env {
	tb.Helper()
	db := OpenDB(tb)
	counter := database.NewQueryCounter()
	db.AddQueryHook(counter)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = tx.Rollback() })
	counter.Reset()
	return &Env{DB: db, Tx: tx, Queries: counter}
}

// Fixture is the data most query tests start from: teamA with member1 (10)
// and member2 (20), teamB with member3 (30) and member4 (40).
type Fixture struct {
	TeamA, TeamB *entity.Team
	Members      []*entity.Member
}

// Seed inserts the Fixture through db and resets the query counter.
func (e *Env) Seed(tb testing.TB) *Fixture {
	tb.Helper()
	ctx := context.Background()
	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	_, err := e.Tx.NewInsert().Model(teamA).Exec(ctx)
	require.NoError(tb, err)
	_, err = e.Tx.NewInsert().Model(teamB).Exec(ctx)
	require.NoError(tb, err)

	members := []*entity.Member{
		entity.NewMember("member1", 10, teamA),
		entity.NewMember("member2", 20, teamA),
		entity.NewMember("member3", 30, teamB),
		entity.NewMember("member4", 40, teamB),
	}
	for _, m := range members {
		_, err := e.Tx.NewInsert().Model(m).Exec(ctx)
		require.NoError(tb, err)
	}
	e.Queries.Reset()
	return &Fixture{TeamA: teamA, TeamB: teamB, Members: members}
}

// Insert persists models one by one through the transaction.
func (e *Env) Insert(tb testing.TB, models ...interface{}) {
	tb.Helper()
	for _, m := range models {
		_, err := e.Tx.NewInsert().Model(m).Exec(context.Background())
		require.NoError(tb, err)
	}
}
