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
	"errors"
	"fmt"

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun"
)

var (
	errOnWithoutJoin = errors.New("query: On requires a preceding join")
	errOnFetchJoin   = errors.New("query: a fetch join cannot have an On condition")
)

// Factory creates queries against a database or transaction.
type Factory struct {
	db bun.IDB
}

func NewFactory(db bun.IDB) *Factory {
	return &Factory{db: db}
}

// WithTx returns a factory whose queries run in tx.
func (f *Factory) WithTx(tx bun.Tx) *Factory {
	return &Factory{db: tx}
}

func (f *Factory) DB() bun.IDB { return f.db }

type join struct {
	typ    types.JoinType
	rel    *RelationPath
	target Entity
	on     []*Predicate
	fetch  bool
}

// clauses holds everything but the projection. Builder mistakes are kept in
// err and reported by the terminal operation.
type clauses struct {
	db       bun.IDB
	from     []Entity
	joins    []*join
	where    []*Predicate
	groupBy  []Expression
	having   []*Predicate
	orders   []*OrderSpecifier
	offset   int
	limit    int
	distinct bool
	err      error
}

func (c *clauses) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *clauses) addJoin(typ types.JoinType, rel *RelationPath, target Entity) {
	if rel == nil && target == nil {
		c.fail(errors.New("query: join target cannot be nil"))
		return
	}
	if rel != nil {
		target = rel.Target
	}
	c.joins = append(c.joins, &join{typ: typ, rel: rel, target: target})
}

func (c *clauses) lastJoin() *join {
	if len(c.joins) == 0 {
		return nil
	}
	return c.joins[len(c.joins)-1]
}

func (c *clauses) addOn(preds []*Predicate) {
	j := c.lastJoin()
	switch {
	case j == nil:
		c.fail(errOnWithoutJoin)
	case j.fetch:
		c.fail(errOnFetchJoin)
	default:
		j.on = append(j.on, preds...)
	}
}

func (c *clauses) markFetch() {
	j := c.lastJoin()
	switch {
	case j == nil || j.rel == nil:
		c.fail(errors.New("query: FetchJoin requires a preceding association join"))
	case j.rel.ToMany:
		c.fail(fmt.Errorf("query: fetch join of collection %s is not supported", j.rel.Name))
	case len(j.on) > 0:
		c.fail(errOnFetchJoin)
	default:
		j.fetch = true
	}
}

func (c *clauses) apply(q *bun.SelectQuery, entityProjection bool) (*bun.SelectQuery, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.distinct {
		q = q.Distinct()
	}
	for _, e := range c.from {
		q = q.TableExpr("?", e)
	}
	for _, j := range c.joins {
		if j.fetch {
			if !entityProjection {
				return nil, errors.New("query: fetch join requires an entity projection")
			}
			q = q.Relation(j.rel.Name)
			if j.typ == types.InnerJoin {
				q = q.Where("? IS NOT NULL", Col(j.target.Alias(), j.rel.TargetColumn))
			}
			continue
		}
		cond := AllOf(j.on...)
		if j.rel != nil {
			cond = j.rel.condition().And(cond)
		} else if cond == nil {
			return nil, fmt.Errorf("query: join to %s requires an On condition", j.target.Alias())
		}
		keyword := "JOIN ?"
		if j.typ == types.LeftJoin {
			keyword = "LEFT JOIN ?"
		}
		q = q.Join(keyword, j.target).JoinOn("?", cond)
	}
	if where := AllOf(c.where...); where != nil {
		q = q.Where("?", where)
	}
	for _, g := range c.groupBy {
		q = q.GroupExpr("?", g)
	}
	if having := AllOf(c.having...); having != nil {
		q = q.Having("?", having)
	}
	for _, o := range c.orders {
		q = q.OrderExpr("?", o)
	}
	if c.offset > 0 {
		q = q.Offset(c.offset)
	}
	if c.limit > 0 {
		q = q.Limit(c.limit)
	}
	return q, nil
}

func (c *clauses) setOffset(offset int) {
	if offset < 0 {
		c.fail(fmt.Errorf("query: invalid offset %d", offset))
		return
	}
	c.offset = offset
}

func (c *clauses) setLimit(limit int) {
	if limit < 0 {
		c.fail(fmt.Errorf("query: invalid limit %d", limit))
		return
	}
	c.limit = limit
}

// QueryResults is a page of results with the total row count ignoring
// offset and limit.
type QueryResults[T any] struct {
	Total   int
	Limit   int
	Offset  int
	Results []T
}

func (r *QueryResults[T]) IsEmpty() bool { return len(r.Results) == 0 }
