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

	"github.com/tomoncle/datastudy/types"
	"github.com/uptrace/bun/schema"
)

const (
	orderAsc  = types.Asc
	orderDesc = types.Desc
)

// OrderSpecifier is one ORDER BY key. Null placement other than the native one
// is rendered as a leading "IS NULL" key so it works on every dialect.
type OrderSpecifier struct {
	target    Expression
	direction types.Direction
	nulls     types.NullHandling
}

var _ schema.QueryAppender = (*OrderSpecifier)(nil)

func newOrder(target Expression, direction types.Direction) *OrderSpecifier {
	return &OrderSpecifier{target: target, direction: direction}
}

// NewOrder orders by target.
func NewOrder(target Expression, direction types.Direction, nulls types.NullHandling) *OrderSpecifier {
	return &OrderSpecifier{target: target, direction: direction, nulls: nulls}
}

func (o *OrderSpecifier) NullsFirst() *OrderSpecifier {
	return NewOrder(o.target, o.direction, types.NullsFirst)
}

func (o *OrderSpecifier) NullsLast() *OrderSpecifier {
	return NewOrder(o.target, o.direction, types.NullsLast)
}

func (o *OrderSpecifier) Direction() types.Direction       { return o.direction }
func (o *OrderSpecifier) NullHandling() types.NullHandling { return o.nulls }

func (o *OrderSpecifier) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	dir := " ASC"
	if o.direction == types.Desc {
		dir = " DESC"
	}
	switch o.nulls {
	case types.NullsLast:
		return fmter.AppendQuery(b, "? IS NULL ASC, ?"+dir, o.target, o.target), nil
	case types.NullsFirst:
		return fmter.AppendQuery(b, "? IS NULL DESC, ?"+dir, o.target, o.target), nil
	default:
		return fmter.AppendQuery(b, "?"+dir, o.target), nil
	}
}

// SortOf converts a property based sort into order specifiers on root.
// A property is a column of root, or "alias.column" for a joined entity.
func SortOf(root Entity, sort types.Sort) []*OrderSpecifier {
	orders := make([]*OrderSpecifier, 0, len(sort))
	for _, o := range sort {
		alias, column := root.Alias(), o.Property
		if a, c, ok := strings.Cut(o.Property, "."); ok {
			alias, column = a, c
		}
		orders = append(orders, NewOrder(Col(alias, column), o.Direction, o.NullHandling))
	}
	return orders
}
