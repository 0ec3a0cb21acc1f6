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
	"errors"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

// TupleQuery selects a list of expressions. Results are Tuples, or structs
// through FetchInto.
type TupleQuery struct {
	clauses
	selects []Expression
}

// Select starts a projection query; name its roots with From.
func (f *Factory) Select(exprs ...Expression) *TupleQuery {
	return &TupleQuery{clauses: clauses{db: f.db}, selects: exprs}
}

// From names the roots; more than one root makes a theta join.
func (q *TupleQuery) From(roots ...Entity) *TupleQuery {
	q.from = append(q.from, roots...)
	return q
}

func (q *TupleQuery) Join(rel *RelationPath) *TupleQuery {
	q.addJoin(types.InnerJoin, rel, nil)
	return q
}

func (q *TupleQuery) LeftJoin(rel *RelationPath) *TupleQuery {
	q.addJoin(types.LeftJoin, rel, nil)
	return q
}

func (q *TupleQuery) JoinTo(target Entity) *TupleQuery {
	q.addJoin(types.InnerJoin, nil, target)
	return q
}

func (q *TupleQuery) LeftJoinTo(target Entity) *TupleQuery {
	q.addJoin(types.LeftJoin, nil, target)
	return q
}

func (q *TupleQuery) On(preds ...*Predicate) *TupleQuery {
	q.addOn(preds)
	return q
}

func (q *TupleQuery) Where(preds ...*Predicate) *TupleQuery {
	q.where = append(q.where, preds...)
	return q
}

func (q *TupleQuery) GroupBy(exprs ...Expression) *TupleQuery {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

func (q *TupleQuery) Having(preds ...*Predicate) *TupleQuery {
	q.having = append(q.having, preds...)
	return q
}

func (q *TupleQuery) OrderBy(orders ...*OrderSpecifier) *TupleQuery {
	q.orders = append(q.orders, orders...)
	return q
}

func (q *TupleQuery) Offset(offset int) *TupleQuery {
	q.setOffset(offset)
	return q
}

func (q *TupleQuery) Limit(limit int) *TupleQuery {
	q.setLimit(limit)
	return q
}

func (q *TupleQuery) Distinct() *TupleQuery {
	q.distinct = true
	return q
}

func (q *TupleQuery) build() (*bun.SelectQuery, []string, error) {
	if len(q.selects) == 0 {
		return nil, nil, errors.New("query: Select requires at least one expression")
	}
	if len(q.from) == 0 {
		return nil, nil, errors.New("query: Select requires From")
	}
	bq := q.db.NewSelect()
	columns := make([]string, len(q.selects))
	for i, e := range q.selects {
		columns[i] = columnAlias(i, e)
		bq = bq.ColumnExpr("? AS ?", e, bun.Ident(columns[i]))
	}
	bq, err := q.apply(bq, false)
	return bq, columns, err
}

func (q *TupleQuery) scan(ctx context.Context, bq *bun.SelectQuery, columns []string) ([]Tuple, error) {
	var rows []map[string]interface{}
	if err := bq.Scan(ctx, &rows); err != nil {
		return nil, database.Translate(err)
	}
	tuples := make([]Tuple, len(rows))
	for i, row := range rows {
		tuples[i] = newTuple(q.selects, columns, row)
	}
	return tuples, nil
}

func (q *TupleQuery) Fetch(ctx context.Context) ([]Tuple, error) {
	bq, columns, err := q.build()
	if err != nil {
		return nil, err
	}
	return q.scan(ctx, bq, columns)
}

// FetchOne returns the single row, nil if there is none and
// database.ErrNonUniqueResult if there are several.
func (q *TupleQuery) FetchOne(ctx context.Context) (*Tuple, error) {
	bq, columns, err := q.build()
	if err != nil {
		return nil, err
	}
	bq = bq.Limit(2)
	tuples, err := q.scan(ctx, bq, columns)
	if err != nil {
		return nil, err
	}
	switch len(tuples) {
	case 0:
		return nil, nil
	case 1:
		return &tuples[0], nil
	default:
		return nil, database.ErrNonUniqueResult
	}
}

func (q *TupleQuery) FetchFirst(ctx context.Context) (*Tuple, error) {
	bq, columns, err := q.build()
	if err != nil {
		return nil, err
	}
	tuples, err := q.scan(ctx, bq.Limit(1), columns)
	if err != nil || len(tuples) == 0 {
		return nil, err
	}
	return &tuples[0], nil
}

func (q *TupleQuery) FetchResults(ctx context.Context) (*QueryResults[Tuple], error) {
	bq, columns, err := q.build()
	if err != nil {
		return nil, err
	}
	total, err := bq.Count(ctx)
	if err != nil {
		return nil, database.Translate(err)
	}
	results := &QueryResults[Tuple]{Total: total, Limit: q.limit, Offset: q.offset, Results: []Tuple{}}
	if total == 0 || q.offset >= total {
		return results, nil
	}
	if results.Results, err = q.scan(ctx, bq, columns); err != nil {
		return nil, err
	}
	return results, nil
}

func (q *TupleQuery) FetchCount(ctx context.Context) (int, error) {
	bq, _, err := q.build()
	if err != nil {
		return 0, err
	}
	n, err := bq.Count(ctx)
	return n, database.Translate(err)
}

// FetchInto scans the rows into dest, a pointer to a slice of structs or of
// scalars. Struct fields are matched by their bun column name against the
// aliases given with As.
func (q *TupleQuery) FetchInto(ctx context.Context, dest interface{}) error {
	bq, _, err := q.build()
	if err != nil {
		return err
	}
	return database.Translate(bq.Scan(ctx, dest))
}
