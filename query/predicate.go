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
	"strings"

	"github.com/uptrace/bun/schema"
)

// Predicate is a boolean SQL condition. A nil *Predicate means "no
// constraint": combinators drop it and queries skip it.
type Predicate struct {
	query string
	args  []interface{}
}

var _ schema.QueryAppender = (*Predicate)(nil)

func newPredicate(query string, args ...interface{}) *Predicate {
	return &Predicate{query: query, args: args}
}

// Raw builds a predicate from a Bun query template such as "? > now()".
func Raw(query string, args ...interface{}) *Predicate {
	return newPredicate(query, args...)
}

func (p *Predicate) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return fmter.AppendQuery(b, p.query, p.args...), nil
}

// And conjoins p with others; p may be nil.
func (p *Predicate) And(others ...*Predicate) *Predicate {
	return AllOf(append([]*Predicate{p}, others...)...)
}

// Or disjoins p with others; p may be nil.
func (p *Predicate) Or(others ...*Predicate) *Predicate {
	return AnyOf(append([]*Predicate{p}, others...)...)
}

func (p *Predicate) Not() *Predicate { return Not(p) }

// Not negates p. The negation of no constraint is still no constraint.
func Not(p *Predicate) *Predicate {
	if p == nil {
		return nil
	}
	return newPredicate("NOT (?)", p)
}

// AllOf is the conjunction of the non-nil predicates, or nil if there are none.
func AllOf(preds ...*Predicate) *Predicate {
	return combine(" AND ", preds)
}

// AnyOf is the disjunction of the non-nil predicates, or nil if there are none.
func AnyOf(preds ...*Predicate) *Predicate {
	return combine(" OR ", preds)
}

func combine(op string, preds []*Predicate) *Predicate {
	args := make([]interface{}, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			args = append(args, p)
		}
	}
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0].(*Predicate)
	}
	placeholders := make([]string, len(args))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return newPredicate("("+strings.Join(placeholders, op)+")", args...)
}
