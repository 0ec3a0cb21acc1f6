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
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Expression is a SQL fragment that can be projected, compared or ordered.
// Key identifies the expression inside a Tuple.
type Expression interface {
	schema.QueryAppender
	Key() string
}

// Number is the set of Go types a NumberExpr can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// Expr is an untyped expression. Typed expressions embed it.
type Expr struct {
	query string
	args  []interface{}
	key   string
}

var _ Expression = (*Expr)(nil)

func newExpr(key, query string, args ...interface{}) *Expr {
	return &Expr{query: query, args: args, key: key}
}

// Col references column of the entity aliased alias.
func Col(alias, column string) *Expr {
	return newExpr(alias+"."+column, "?.?", bun.Ident(alias), bun.Ident(column))
}

func (e *Expr) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return fmter.AppendQuery(b, e.query, e.args...), nil
}

func (e *Expr) Key() string { return e.key }

func (e *Expr) String() string { return e.key }

func (e *Expr) Asc() *OrderSpecifier  { return newOrder(e, orderAsc) }
func (e *Expr) Desc() *OrderSpecifier { return newOrder(e, orderDesc) }

func (e *Expr) IsNull() *Predicate    { return newPredicate("? IS NULL", e) }
func (e *Expr) IsNotNull() *Predicate { return newPredicate("? IS NOT NULL", e) }

// EqExpr compares two expressions, e.g. columns of different entities in a
// theta join.
func (e *Expr) EqExpr(other Expression) *Predicate { return newPredicate("? = ?", e, other) }
func (e *Expr) NeExpr(other Expression) *Predicate { return newPredicate("? <> ?", e, other) }

func (e *Expr) Count() *NumberExpr[int64] {
	return &NumberExpr[int64]{newExpr("count("+e.key+")", "count(?)", e)}
}

func (e *Expr) CountDistinct() *NumberExpr[int64] {
	return &NumberExpr[int64]{newExpr("count(distinct "+e.key+")", "count(DISTINCT ?)", e)}
}

// As names the projected column. Tuple.Get still finds it by the original
// expression and FetchInto maps it to the struct field tagged alias.
func (e *Expr) As(alias string) Expression { return As(e, alias) }

// StringExpr is a character-valued expression.
type StringExpr struct{ *Expr }

// NewString declares a string column of entity.
func NewString(entity Entity, column string) *StringExpr {
	return &StringExpr{Col(entity.Alias(), column)}
}

func (s *StringExpr) Eq(v string) *Predicate { return newPredicate("? = ?", s.Expr, v) }
func (s *StringExpr) Ne(v string) *Predicate { return newPredicate("? <> ?", s.Expr, v) }

func (s *StringExpr) In(vs ...string) *Predicate {
	if len(vs) == 0 {
		return newPredicate("1 = 0")
	}
	return newPredicate("? IN (?)", s.Expr, bun.In(vs))
}

func (s *StringExpr) NotIn(vs ...string) *Predicate {
	if len(vs) == 0 {
		return nil
	}
	return newPredicate("? NOT IN (?)", s.Expr, bun.In(vs))
}

// Like matches pattern as given; % and _ keep their SQL meaning.
func (s *StringExpr) Like(pattern string) *Predicate {
	return newPredicate("? LIKE ?", s.Expr, pattern)
}

// StartsWith and Contains match their argument literally.
func (s *StringExpr) StartsWith(prefix string) *Predicate {
	return newPredicate("? LIKE ? ESCAPE '!'", s.Expr, escapeLike(prefix)+"%")
}

func (s *StringExpr) Contains(part string) *Predicate {
	return newPredicate("? LIKE ? ESCAPE '!'", s.Expr, "%"+escapeLike(part)+"%")
}

func (s *StringExpr) Lower() *StringExpr {
	return &StringExpr{newExpr("lower("+s.key+")", "lower(?)", s.Expr)}
}

func (s *StringExpr) Max() *StringExpr {
	return &StringExpr{newExpr("max("+s.key+")", "max(?)", s.Expr)}
}

func (s *StringExpr) Min() *StringExpr {
	return &StringExpr{newExpr("min("+s.key+")", "min(?)", s.Expr)}
}

// NumberExpr is a numeric expression holding values of N.
type NumberExpr[N Number] struct{ *Expr }

// NewNumber declares a numeric column of entity.
func NewNumber[N Number](entity Entity, column string) *NumberExpr[N] {
	return &NumberExpr[N]{Col(entity.Alias(), column)}
}

func (n *NumberExpr[N]) Eq(v N) *Predicate  { return newPredicate("? = ?", n.Expr, v) }
func (n *NumberExpr[N]) Ne(v N) *Predicate  { return newPredicate("? <> ?", n.Expr, v) }
func (n *NumberExpr[N]) Gt(v N) *Predicate  { return newPredicate("? > ?", n.Expr, v) }
func (n *NumberExpr[N]) Goe(v N) *Predicate { return newPredicate("? >= ?", n.Expr, v) }
func (n *NumberExpr[N]) Lt(v N) *Predicate  { return newPredicate("? < ?", n.Expr, v) }
func (n *NumberExpr[N]) Loe(v N) *Predicate { return newPredicate("? <= ?", n.Expr, v) }

// Between is inclusive on both ends.
func (n *NumberExpr[N]) Between(from, to N) *Predicate {
	return newPredicate("? BETWEEN ? AND ?", n.Expr, from, to)
}

func (n *NumberExpr[N]) In(vs ...N) *Predicate {
	if len(vs) == 0 {
		return newPredicate("1 = 0")
	}
	return newPredicate("? IN (?)", n.Expr, bun.In(vs))
}

func (n *NumberExpr[N]) NotIn(vs ...N) *Predicate {
	if len(vs) == 0 {
		return nil
	}
	return newPredicate("? NOT IN (?)", n.Expr, bun.In(vs))
}

func (n *NumberExpr[N]) Add(v N) *NumberExpr[N] {
	return &NumberExpr[N]{newExpr(fmt.Sprintf("%s + %v", n.key, v), "? + ?", n.Expr, v)}
}

func (n *NumberExpr[N]) Sum() *NumberExpr[N] {
	return &NumberExpr[N]{newExpr("sum("+n.key+")", "sum(?)", n.Expr)}
}

func (n *NumberExpr[N]) Avg() *NumberExpr[float64] {
	return &NumberExpr[float64]{newExpr("avg("+n.key+")", "avg(?)", n.Expr)}
}

func (n *NumberExpr[N]) Max() *NumberExpr[N] {
	return &NumberExpr[N]{newExpr("max("+n.key+")", "max(?)", n.Expr)}
}

func (n *NumberExpr[N]) Min() *NumberExpr[N] {
	return &NumberExpr[N]{newExpr("min("+n.key+")", "min(?)", n.Expr)}
}

type aliased struct {
	Expression
	alias string
}

// As names the projected column of e.
func As(e Expression, alias string) Expression {
	if a, ok := e.(*aliased); ok {
		e = a.Expression
	}
	return &aliased{Expression: e, alias: alias}
}

func columnAlias(i int, e Expression) string {
	if a, ok := e.(*aliased); ok {
		return a.alias
	}
	return fmt.Sprintf("c%d", i)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
