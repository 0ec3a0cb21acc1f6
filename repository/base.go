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
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/types"
)

type baseRepositoryImpl[T any] struct {
	db   bun.IDB
	root query.Entity
	qf   *query.Factory
}

// NewRepository returns a generic repository of T backed by db, which may be
// a *bun.DB or a bun.Tx. root is the query path of T; its alias must be the
// alias of the T model.
func NewRepository[T any](db bun.IDB, root query.Entity) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, root: root, qf: query.NewFactory(db)}
}

func (r *baseRepositoryImpl[T]) WithTx(tx bun.Tx) Repository[T] {
	return NewRepository[T](tx, r.root)
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) idColumn() *query.Expr {
	return query.Col(r.root.Alias(), r.root.IDColumn())
}

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	var entity T
	err := r.db.NewSelect().Model(&entity).Where("? = ?", r.idColumn(), id).Scan(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, sort ...types.Order) ([]*T, error) {
	entities := make([]*T, 0)
	q := r.db.NewSelect().Model(&entities)
	for _, o := range query.SortOf(r.root, sort) {
		q = q.OrderExpr("?", o)
	}
	err := q.Scan(ctx)
	return entities, database.Translate(err)
}

func (r *baseRepositoryImpl[T]) FindAllByID(ctx context.Context, ids ...any) ([]*T, error) {
	entities := make([]*T, 0, len(ids))
	if len(ids) == 0 {
		return entities, nil
	}
	err := r.db.NewSelect().Model(&entities).
		Where("? IN (?)", r.idColumn(), bun.In(ids)).
		Scan(ctx)
	return entities, database.Translate(err)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	var entities []*T
	q := r.db.NewSelect().Model(&entities)
	if filter != nil {
		q = q.Where(filter.Schema, filter.Args...)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, database.Translate(err)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*T)(nil)).Count(ctx)
	return n, database.Translate(err)
}

func (r *baseRepositoryImpl[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	ok, err := r.db.NewSelect().Model((*T)(nil)).Where("? = ?", r.idColumn(), id).Exists(ctx)
	return ok, database.Translate(err)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	q := r.db.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		q = q.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := q.Count(ctx)
	if err != nil || total == 0 {
		return pagination, database.Translate(err)
	}
	for _, o := range query.SortOf(r.root, pageRequest.GetSort()) {
		q = q.OrderExpr("?", o)
	}
	err = q.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// Save inserts entity when it is new and updates it by primary key otherwise.
// Entities that do not implement Persistable are looked up first.
func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) (*T, error) {
	isNew, err := r.isNew(ctx, entity)
	if err != nil {
		return nil, err
	}
	if isNew {
		if _, err := r.insert(entity).Exec(ctx); err != nil {
			return nil, database.Translate(err)
		}
		return entity, nil
	}
	res, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("save %T: %w", entity, database.ErrNotFound)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) insert(entity *T) *bun.InsertQuery {
	return r.keyColumn(r.db.NewInsert().Model(entity))
}

// keyColumn lists the generated key explicitly when it is the only column of
// T, so the statement never renders an empty column list.
func (r *baseRepositoryImpl[T]) keyColumn(q *bun.InsertQuery) *bun.InsertQuery {
	table := r.db.Dialect().Tables().Get(reflect.TypeOf((*T)(nil)).Elem())
	if len(table.Fields) == 1 && len(table.PKs) == 1 && table.PKs[0].AutoIncrement {
		q = q.Column(table.PKs[0].Name)
	}
	return q
}

func (r *baseRepositoryImpl[T]) isNew(ctx context.Context, entity *T) (bool, error) {
	if p, ok := any(entity).(Persistable); ok {
		return p.IsNew(), nil
	}
	exists, err := r.db.NewSelect().Model(entity).WherePK().Exists(ctx)
	return !exists, database.Translate(err)
}

// SaveAll saves the entities in one transaction, or in a savepoint when the
// repository already runs in a transaction.
func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repo := r.WithTx(tx)
		for _, e := range entity {
			if _, err := repo.Save(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}
	insertQuery := r.keyColumn(r.db.NewInsert())
	entities := r.ValsToSlice(entity...)

	features := r.db.Dialect().Features()
	var err error
	switch {
	case features.Has(feature.InsertOnConflict):
		err = r.upsertWithPostgresqlOrSQLite(ctx, insertQuery, fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		err = r.upsertWithMySQL(ctx, insertQuery, fields, entities)
	default:
		// Fallback: Separate insert/update logic
		err = r.upsertFallback(ctx, entities)
	}
	return database.Translate(err)
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", bun.Ident(field), bun.Ident(field)))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{r.root.IDColumn()}
	}
	keyNames := strings.Join(duplicateKeys, ",")
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", bun.Ident(field), bun.Ident(field)))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		_, err := r.insert(entity).Exec(ctx)
		if err != nil {
			_, updateErr := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	_, err := r.db.NewDelete().Model(entity).WherePK().Exec(ctx)
	return database.Translate(err)
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := r.db.NewDelete().Model((*T)(nil)).Where("? = ?", r.idColumn(), id).Exec(ctx)
	return database.Translate(err)
}

// DeleteAll removes every row of the table and returns how many were deleted.
func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().Model((*T)(nil)).Where("1 = 1").Exec(ctx)
	if err != nil {
		return 0, database.Translate(err)
	}
	return res.RowsAffected()
}
