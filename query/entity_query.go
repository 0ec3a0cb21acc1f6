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

package query

import (
	"context"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

// EntityQuery selects whole entities of type T. T must be the Bun model whose
// table and alias match the root path.
type EntityQuery[T any] struct {
	clauses
	root Entity
}

// SelectFrom starts an entity query rooted at root, e.g.
//
//	query.SelectFrom[entity.Member](qf, entity.QMember).
//		Where(entity.QMember.Username.Eq("member1")).
//		FetchOne(ctx)
func SelectFrom[T any](f *Factory, root Entity) *EntityQuery[T] {
	return &EntityQuery[T]{clauses: clauses{db: f.db}, root: root}
}

func (q *EntityQuery[T]) Root() Entity { return q.root }

// From adds roots for a theta join; constrain them with Where.
func (q *EntityQuery[T]) From(roots ...Entity) *EntityQuery[T] {
	q.from = append(q.from, roots...)
	return q
}

// Join inner-joins an association of an entity already in the query.
func (q *EntityQuery[T]) Join(rel *RelationPath) *EntityQuery[T] {
	q.addJoin(types.InnerJoin, rel, nil)
	return q
}

// LeftJoin outer-joins an association of an entity already in the query.
func (q *EntityQuery[T]) LeftJoin(rel *RelationPath) *EntityQuery[T] {
	q.addJoin(types.LeftJoin, rel, nil)
	return q
}

// JoinTo inner-joins an unrelated entity; the condition is given by On.
func (q *EntityQuery[T]) JoinTo(target Entity) *EntityQuery[T] {
	q.addJoin(types.InnerJoin, nil, target)
	return q
}

// LeftJoinTo outer-joins an unrelated entity; the condition is given by On.
func (q *EntityQuery[T]) LeftJoinTo(target Entity) *EntityQuery[T] {
	q.addJoin(types.LeftJoin, nil, target)
	return q
}

// On adds conditions to the last join. For association joins they are
// combined with the key condition.
func (q *EntityQuery[T]) On(preds ...*Predicate) *EntityQuery[T] {
	q.addOn(preds)
	return q
}

// FetchJoin turns the last association join into a fetch join: the associated
// entity is selected in the same statement and set on the result.
func (q *EntityQuery[T]) FetchJoin() *EntityQuery[T] {
	q.markFetch()
	return q
}

// Where adds conditions combined with AND; nil predicates are ignored.
func (q *EntityQuery[T]) Where(preds ...*Predicate) *EntityQuery[T] {
	q.where = append(q.where, preds...)
	return q
}

func (q *EntityQuery[T]) GroupBy(exprs ...Expression) *EntityQuery[T] {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

func (q *EntityQuery[T]) Having(preds ...*Predicate) *EntityQuery[T] {
	q.having = append(q.having, preds...)
	return q
}

func (q *EntityQuery[T]) OrderBy(orders ...*OrderSpecifier) *EntityQuery[T] {
	q.orders = append(q.orders, orders...)
	return q
}

func (q *EntityQuery[T]) Offset(offset int) *EntityQuery[T] {
	q.setOffset(offset)
	return q
}

func (q *EntityQuery[T]) Limit(limit int) *EntityQuery[T] {
	q.setLimit(limit)
	return q
}

func (q *EntityQuery[T]) Distinct() *EntityQuery[T] {
	q.distinct = true
	return q
}

func (q *EntityQuery[T]) build(dest *[]*T) (*bun.SelectQuery, error) {
	return q.apply(q.db.NewSelect().Model(dest), true)
}

// Fetch returns all matching entities.
func (q *EntityQuery[T]) Fetch(ctx context.Context) ([]*T, error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return nil, err
	}
	if err := bq.Scan(ctx); err != nil {
		return nil, database.Translate(err)
	}
	return out, nil
}

// FetchOne returns the single matching entity, nil if there is none and
// database.ErrNonUniqueResult if there are several.
func (q *EntityQuery[T]) FetchOne(ctx context.Context) (*T, error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return nil, err
	}
	bq = bq.Limit(2)
	if err := bq.Scan(ctx); err != nil {
		return nil, database.Translate(err)
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return nil, database.ErrNonUniqueResult
	}
}

// FetchFirst returns the first matching entity or nil.
func (q *EntityQuery[T]) FetchFirst(ctx context.Context) (*T, error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return nil, err
	}
	if err := bq.Limit(1).Scan(ctx); err != nil {
		return nil, database.Translate(err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// FetchResults returns the requested window and the total number of matches.
func (q *EntityQuery[T]) FetchResults(ctx context.Context) (*QueryResults[*T], error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return nil, err
	}
	total, err := bq.Count(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	results := &QueryResults[*T]{Total: total, Limit: q.limit, Offset: q.offset, Results: []*T{}}
	if total == 0 || q.offset >= total {
		return results, nil
	}
	if err := bq.Scan(ctx); err != nil {
		return nil, database.Translate(err)
	}
	results.Results = out
	return results, nil
}

// FetchCount counts the matches ignoring offset and limit.
func (q *EntityQuery[T]) FetchCount(ctx context.Context) (int, error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return 0, err
	}
	n, err := bq.Count(ctx)
	return n, database.Translate(err)
}

func (q *EntityQuery[T]) Exists(ctx context.Context) (bool, error) {
	var out []*T
	bq, err := q.build(&out)
	if err != nil {
		return false, err
	}
	ok, err := bq.Exists(ctx)
	return ok, database.Translate(err)
}
