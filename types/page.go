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

package types

import "strings"

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// Order is a single sort key. Property is the column name of the entity.
type Order struct {
	Property     string
	Direction    Direction
	NullHandling NullHandling
}

// Sort is an ordered list of sort keys; the first key is the most significant.
type Sort []Order

func By(direction Direction, properties ...string) Sort {
	sort := make(Sort, 0, len(properties))
	for _, p := range properties {
		sort = append(sort, Order{Property: p, Direction: direction})
	}
	return sort
}

func OrderAsc(property string) Order  { return Order{Property: property, Direction: Asc} }
func OrderDesc(property string) Order { return Order{Property: property, Direction: Desc} }

func (o Order) NullsFirst() Order {
	o.NullHandling = NullsFirst
	return o
}

func (o Order) NullsLast() Order {
	o.NullHandling = NullsLast
	return o
}

func (s Sort) And(other ...Order) Sort {
	out := make(Sort, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

func (s Sort) IsSorted() bool { return len(s) > 0 }

// ParseSort reads "username,desc" / "age" style expressions.
func ParseSort(exprs ...string) Sort {
	var sort Sort
	for _, expr := range exprs {
		parts := strings.Split(expr, ",")
		prop := strings.TrimSpace(parts[0])
		if prop == "" {
			continue
		}
		order := Order{Property: prop}
		if len(parts) > 1 {
			order.Direction = ParseDirection(parts[1])
		}
		sort = append(sort, order)
	}
	return sort
}

// PageRequest describes pagination, optional filter, and ordering. Pages are 1-based.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	sort     Sort
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// Next returns the request for the following page with the same filter and sort.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{p.GetPage() + 1, p.GetPageSize(), p.filter, p.sort}
}

// NewPageRequest constructs a PageRequest with filter and sort settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, sort Sort) *PageRequest {
	return &PageRequest{page, pageSize, filter, sort}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, nil)
}

// NewPageRequestWithSort constructs a PageRequest with ordering only.
func NewPageRequestWithSort(page int, pageSize int, sort Sort) *PageRequest {
	return NewPageRequest(page, pageSize, nil, sort)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, nil)
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) IsFirst() bool     { return p.Page <= 1 }
func (p *Pagination[T]) IsLast() bool      { return !p.HasNext() }
func (p *Pagination[T]) HasNext() bool     { return p.Page < p.TotalPages() }
func (p *Pagination[T]) HasPrevious() bool { return p.Page > 1 }

// MapPagination converts the items of a page keeping its metadata.
func MapPagination[T, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := &Pagination[R]{p.Page, p.PageSize, p.Total, make([]*R, 0, len(p.Items))}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
