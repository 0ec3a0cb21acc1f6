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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

var (
	_ BaseEnum = Direction(0)
	_ BaseEnum = NullHandling(0)
	_ BaseEnum = JoinType(0)
)

// Direction is the sort direction of an order clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) IsValid() bool { return d == Asc || d == Desc }

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d Direction) Name() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d Direction) Desc() string {
	switch d {
	case Asc:
		return "ascending"
	case Desc:
		return "descending"
	default:
		return IllegalDesc
	}
}

func (d Direction) String() string { return d.Name() }

// ParseDirection accepts "asc"/"desc" in any case, defaulting to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// NullHandling controls where NULL values are placed in an ordering.
type NullHandling int

const (
	NativeNulls NullHandling = iota
	NullsFirst
	NullsLast
)

func (n NullHandling) IsValid() bool { return n >= NativeNulls && n <= NullsLast }

func (n NullHandling) Number() int {
	if !n.IsValid() {
		return IllegalValue
	}
	return int(n)
}

func (n NullHandling) Name() string {
	switch n {
	case NativeNulls:
		return "NATIVE"
	case NullsFirst:
		return "NULLS_FIRST"
	case NullsLast:
		return "NULLS_LAST"
	default:
		return IllegalName
	}
}

func (n NullHandling) Desc() string {
	switch n {
	case NativeNulls:
		return "database default null ordering"
	case NullsFirst:
		return "nulls before non-null values"
	case NullsLast:
		return "nulls after non-null values"
	default:
		return IllegalDesc
	}
}

func (n NullHandling) String() string { return n.Name() }

// JoinType is the kind of SQL join between two sources.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

func (j JoinType) IsValid() bool { return j == InnerJoin || j == LeftJoin }

func (j JoinType) Number() int {
	if !j.IsValid() {
		return IllegalValue
	}
	return int(j)
}

func (j JoinType) Name() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	default:
		return IllegalName
	}
}

func (j JoinType) Desc() string {
	switch j {
	case InnerJoin:
		return "rows matching on both sides"
	case LeftJoin:
		return "all rows of the left side, matched rows of the right side"
	default:
		return IllegalDesc
	}
}

func (j JoinType) String() string { return j.Name() }
