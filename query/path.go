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
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Entity is a table reference with the alias its columns are qualified with.
type Entity interface {
	schema.QueryAppender
	TableName() string
	Alias() string
	IDColumn() string
}

// EntityPath is the root path of an entity. Embed it in a struct that declares
// the entity's columns and associations. The alias must match the "alias"
// bun tag of the model when the path is used as a query root.
type EntityPath struct {
	table string
	alias string
	id    string
}

var _ Entity = (*EntityPath)(nil)

func NewEntityPath(table, alias, idColumn string) *EntityPath {
	return &EntityPath{table: table, alias: alias, id: idColumn}
}

func (e *EntityPath) TableName() string { return e.table }
func (e *EntityPath) Alias() string     { return e.alias }
func (e *EntityPath) IDColumn() string  { return e.id }

// AppendQuery renders the table with its alias, as used in FROM and JOIN.
func (e *EntityPath) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return fmter.AppendQuery(b, "? AS ?", bun.Ident(e.table), bun.Ident(e.alias)), nil
}

// Column references any column of the entity.
func (e *EntityPath) Column(name string) *Expr { return Col(e.alias, name) }

// Count counts the entity's identifiers.
func (e *EntityPath) Count() *NumberExpr[int64] { return e.Column(e.id).Count() }

// RelationPath is an association from Source to Target. The join condition is
// target.TargetColumn = source.SourceColumn. Name is the struct field a fetch
// join loads, which Bun also uses as the alias of the joined table.
type RelationPath struct {
	Name         string
	Source       Entity
	SourceColumn string
	Target       Entity
	TargetColumn string
	ToMany       bool
}

// NewToOne declares a many-to-one association owned by source through fk.
func NewToOne(source Entity, name, fk string, target Entity) *RelationPath {
	return &RelationPath{
		Name:         name,
		Source:       source,
		SourceColumn: fk,
		Target:       target,
		TargetColumn: target.IDColumn(),
	}
}

// NewToMany declares the inverse side of a NewToOne association; mappedBy is the
// foreign key column on target.
func NewToMany(source Entity, name, mappedBy string, target Entity) *RelationPath {
	return &RelationPath{
		Name:         name,
		Source:       source,
		SourceColumn: source.IDColumn(),
		Target:       target,
		TargetColumn: mappedBy,
		ToMany:       true,
	}
}

func (r *RelationPath) condition() *Predicate {
	return newPredicate("? = ?",
		Col(r.Target.Alias(), r.TargetColumn),
		Col(r.Source.Alias(), r.SourceColumn),
	)
}
