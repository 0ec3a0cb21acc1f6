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

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/types"
)

// Specification builds the condition of a query on T. It may request joins
// through root and returns nil when it does not constrain the query.
type Specification[T any] func(root *Root) *query.Predicate

// Where starts a chain of specifications. A nil spec matches everything.
func Where[T any](spec Specification[T]) Specification[T] {
	return AllOf(spec)
}

func (s Specification[T]) And(other Specification[T]) Specification[T] {
	return AllOf(s, other)
}

func (s Specification[T]) Or(other Specification[T]) Specification[T] {
	return AnyOf(s, other)
}

// Not negates spec. The negation of an unconstrained spec is unconstrained.
func Not[T any](spec Specification[T]) Specification[T] {
	return func(root *Root) *query.Predicate {
		return query.Not(spec.toPredicate(root))
	}
}

// AllOf matches when every non-nil spec matches.
func AllOf[T any](specs ...Specification[T]) Specification[T] {
	return func(root *Root) *query.Predicate {
		return query.AllOf(toPredicates(root, specs)...)
	}
}

// AnyOf matches when one of the non-nil specs matches.
func AnyOf[T any](specs ...Specification[T]) Specification[T] {
	return func(root *Root) *query.Predicate {
		return query.AnyOf(toPredicates(root, specs)...)
	}
}

func (s Specification[T]) toPredicate(root *Root) *query.Predicate {
	if s == nil {
		return nil
	}
	return s(root)
}

func toPredicates[T any](root *Root, specs []Specification[T]) []*query.Predicate {
	preds := make([]*query.Predicate, 0, len(specs))
	for _, spec := range specs {
		preds = append(preds, spec.toPredicate(root))
	}
	return preds
}

// Root is the entity a specification is evaluated against. Joins requested
// by several specifications on the same relation are made once.
type Root struct {
	query.Entity
	joins []*rootJoin
}

type rootJoin struct {
	rel *query.RelationPath
	typ types.JoinType
}

func NewRoot(entity query.Entity) *Root {
	return &Root{Entity: entity}
}

// Join joins rel and returns its target. Asking for an inner join of a
// relation already left-joined turns it into an inner join.
func (r *Root) Join(rel *query.RelationPath, joinType ...types.JoinType) query.Entity {
	typ := types.InnerJoin
	if len(joinType) > 0 {
		typ = joinType[0]
	}
	for _, j := range r.joins {
		if j.rel == rel {
			if typ == types.InnerJoin {
				j.typ = types.InnerJoin
			}
			return rel.Target
		}
	}
	r.joins = append(r.joins, &rootJoin{rel: rel, typ: typ})
	return rel.Target
}

func (r *Root) Joins() int { return len(r.joins) }

func applyRoot[T any](root *Root, q *query.EntityQuery[T]) *query.EntityQuery[T] {
	for _, j := range root.joins {
		if j.typ == types.LeftJoin {
			q = q.LeftJoin(j.rel)
		} else {
			q = q.Join(j.rel)
		}
		if j.rel.ToMany {
			q = q.Distinct()
		}
	}
	return q
}

func (r *baseRepositoryImpl[T]) specQuery(spec Specification[T]) *query.EntityQuery[T] {
	root := NewRoot(r.root)
	pred := spec.toPredicate(root)
	return applyRoot(root, query.SelectFrom[T](r.qf, r.root)).Where(pred)
}

func (r *baseRepositoryImpl[T]) FindAllBy(ctx context.Context, spec Specification[T], sort ...types.Order) ([]*T, error) {
	return r.specQuery(spec).OrderBy(query.SortOf(r.root, sort)...).Fetch(ctx)
}

// FindOneBy returns the only entity matching spec. It fails with
// database.ErrNotFound or database.ErrNonUniqueResult otherwise.
func (r *baseRepositoryImpl[T]) FindOneBy(ctx context.Context, spec Specification[T]) (*T, error) {
	entity, err := r.specQuery(spec).FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("find %T: %w", entity, database.ErrNotFound)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) CountBy(ctx context.Context, spec Specification[T]) (int, error) {
	return r.specQuery(spec).FetchCount(ctx)
}

func (r *baseRepositoryImpl[T]) ExistsBy(ctx context.Context, spec Specification[T]) (bool, error) {
	return r.specQuery(spec).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) PageBy(ctx context.Context, spec Specification[T], pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	q := r.specQuery(spec)
	if filter := pageRequest.GetFilter(); filter != nil {
		q = q.Where(query.Raw(filter.Schema, filter.Args...))
	}
	results, err := q.
		OrderBy(query.SortOf(r.root, pageRequest.GetSort())...).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		FetchResults(ctx)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	pagination.Total = results.Total
	pagination.Items = results.Results
	return pagination, nil
}
