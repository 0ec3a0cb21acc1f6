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

package repository

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/datastudy/types"
)

// Persistable is implemented by entities that know whether they have been
// stored yet. Save inserts new entities and updates the others.
type Persistable interface {
	IsNew() bool
}

// CrudRepository defines basic CRUD operations for a generic entity type.
// Single-entity lookups return database.ErrNotFound when nothing matches.
type CrudRepository[T any] interface {
	FindByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context, sort ...types.Order) ([]*T, error)

	FindAllByID(ctx context.Context, ids ...any) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context) (int, error)

	ExistsByID(ctx context.Context, id any) (bool, error)

	Save(ctx context.Context, entity *T) (*T, error)

	SaveAll(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error

	DeleteAll(ctx context.Context) (int64, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// SpecificationExecutor runs queries described by a Specification.
type SpecificationExecutor[T any] interface {
	FindAllBy(ctx context.Context, spec Specification[T], sort ...types.Order) ([]*T, error)
	FindOneBy(ctx context.Context, spec Specification[T]) (*T, error)
	CountBy(ctx context.Context, spec Specification[T]) (int, error)
	ExistsBy(ctx context.Context, spec Specification[T]) (bool, error)
	PageBy(ctx context.Context, spec Specification[T], page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, pagination and specification queries and
// exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	SpecificationExecutor[T]
	// WithTx returns the same repository running its statements in tx.
	WithTx(tx bun.Tx) Repository[T]
	DB() bun.IDB
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
