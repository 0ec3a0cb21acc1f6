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

package datastudy

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/repository"
)

// Application wires the repositories and the query factory to one database
// or transaction.
type Application struct {
	db bun.IDB

	Members *repository.MemberRepository
	Teams   repository.Repository[entity.Team]
	Items   repository.Repository[entity.Item]
	Hellos  repository.Repository[entity.Hello]
	Query   *query.Factory

	started bool
}

// New returns an application whose statements run on db, a *bun.DB or a
// bun.Tx.
func New(db bun.IDB) *Application {
	return &Application{
		db:      db,
		Members: repository.NewMemberRepository(db),
		Teams:   repository.NewTeamRepository(db),
		Items:   repository.NewItemRepository(db),
		Hellos:  repository.NewHelloRepository(db),
		Query:   query.NewFactory(db),
	}
}

// Start initializes the global database from cfg, migrating and seeding it
// as configured, and returns an application bound to it.
func Start(cfg *database.Config) (*Application, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	database.GetLogger().Info("Application started", "type", cfg.ConnectionConfig.Type)
	app := New(db)
	app.started = true
	return app, nil
}

func (a *Application) DB() bun.IDB { return a.db }

// Transactional runs fn with an application bound to a new transaction. The
// transaction is committed when fn returns nil and rolled back otherwise.
// Nested calls use savepoints.
func (a *Application) Transactional(ctx context.Context, fn func(ctx context.Context, app *Application) error) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, New(tx))
	})
}

// Close closes the global database when the application was created by Start.
func (a *Application) Close() error {
	if !a.started {
		return nil
	}
	a.started = false
	return database.CloseDB()
}
