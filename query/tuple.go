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
	"reflect"
	"strconv"
	"strings"
)

// Tuple is one row of a projection. Values are addressed by the projected
// expression or by position.
type Tuple struct {
	keys    []string
	columns []string
	row     map[string]interface{}
}

func newTuple(exprs []Expression, columns []string, row map[string]interface{}) Tuple {
	keys := make([]string, len(exprs))
	for i, e := range exprs {
		keys[i] = e.Key()
	}
	return Tuple{keys: keys, columns: columns, row: row}
}

func (t Tuple) Size() int { return len(t.columns) }

// Get returns the value of e, or nil if e was not projected.
func (t Tuple) Get(e Expression) interface{} {
	key := e.Key()
	for i, k := range t.keys {
		if k == key {
			return normalize(t.row[t.columns[i]])
		}
	}
	return nil
}

// GetAt returns the value at position i of the select list.
func (t Tuple) GetAt(i int) interface{} {
	if i < 0 || i >= len(t.columns) {
		return nil
	}
	return normalize(t.row[t.columns[i]])
}

func (t Tuple) GetString(e Expression) string   { return toString(t.Get(e)) }
func (t Tuple) GetInt64(e Expression) int64     { return toInt64(t.Get(e)) }
func (t Tuple) GetFloat64(e Expression) float64 { return toFloat64(t.Get(e)) }

func (t Tuple) String() string {
	parts := make([]string, len(t.columns))
	for i := range t.columns {
		v := t.GetAt(i)
		if v == nil {
			parts[i] = "null"
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(x, 64)
		return int64(f)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

// IsLoaded reports whether the association field of entity holds data. A nil
// pointer, slice or map means the association was not loaded.
func IsLoaded(entity interface{}, field string) bool {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return false
	}
	f := v.FieldByName(field)
	if !f.IsValid() {
		return false
	}
	switch f.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return !f.IsNil()
	default:
		return true
	}
}
