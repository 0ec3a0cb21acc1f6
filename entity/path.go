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

package entity

import (
	"github.com/tomoncle/datastudy/query"
)

// QMemberPath is the query path of Member.
type QMemberPath struct {
	*query.EntityPath
	ID               *query.NumberExpr[int64]
	Username         *query.StringExpr
	Age              *query.NumberExpr[int]
	TeamID           *query.NumberExpr[int64]
	CreatedBy        *query.StringExpr
	LastModifiedBy   *query.StringExpr
	CreatedDate      *query.Expr
	LastModifiedDate *query.Expr
	Team             *query.RelationPath
}

func newQMember(alias string, team *QTeamPath) *QMemberPath {
	root := query.NewEntityPath("member", alias, "id")
	return &QMemberPath{
		EntityPath:       root,
		ID:               query.NewNumber[int64](root, "id"),
		Username:         query.NewString(root, "username"),
		Age:              query.NewNumber[int](root, "age"),
		TeamID:           query.NewNumber[int64](root, "team_id"),
		CreatedBy:        query.NewString(root, "created_by"),
		LastModifiedBy:   query.NewString(root, "last_modified_by"),
		CreatedDate:      root.Column("created_date"),
		LastModifiedDate: root.Column("last_modified_date"),
		Team:             query.NewToOne(root, "Team", "team_id", team),
	}
}

// QTeamPath is the query path of Team.
type QTeamPath struct {
	*query.EntityPath
	ID      *query.NumberExpr[int64]
	Name    *query.StringExpr
	Members *query.RelationPath
}

func newQTeam(alias string) *QTeamPath {
	root := query.NewEntityPath("team", alias, "id")
	return &QTeamPath{
		EntityPath: root,
		ID:         query.NewNumber[int64](root, "id"),
		Name:       query.NewString(root, "name"),
	}
}

// QItemPath is the query path of Item.
type QItemPath struct {
	*query.EntityPath
	ID          *query.StringExpr
	CreatedDate *query.Expr
}

func newQItem(alias string) *QItemPath {
	root := query.NewEntityPath("item", alias, "id")
	return &QItemPath{
		EntityPath:  root,
		ID:          query.NewString(root, "id"),
		CreatedDate: root.Column("created_date"),
	}
}

// QHelloPath is the query path of Hello.
type QHelloPath struct {
	*query.EntityPath
	ID *query.NumberExpr[int64]
}

func newQHello(alias string) *QHelloPath {
	root := query.NewEntityPath("hello", alias, "id")
	return &QHelloPath{EntityPath: root, ID: query.NewNumber[int64](root, "id")}
}

// Default paths. Their aliases are the model aliases, so they can root
// entity queries.
var (
	QTeam   = newQTeam("team")
	QMember = newQMember("member", QTeam)
	QItem   = newQItem("item")
	QHello  = newQHello("hello")
)

func init() {
	QTeam.Members = query.NewToMany(QTeam, "Members", "team_id", QMember)
}
