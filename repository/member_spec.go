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

package repository

import (
	"strings"

	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/query"
)

// MemberSpecs groups the reusable member specifications.
type MemberSpecs struct{}

// MemberSpec is used as MemberSpec.TeamName("teamA").And(MemberSpec.Username("m1")).
var MemberSpec MemberSpecs

// TeamName matches members of the team named teamName. A blank name does not
// constrain the query.
func (MemberSpecs) TeamName(teamName string) Specification[entity.Member] {
	return func(root *Root) *query.Predicate {
		if strings.TrimSpace(teamName) == "" {
			return nil
		}
		team := root.Join(entity.QMember.Team)
		return query.NewString(team, "name").Eq(teamName)
	}
}

// Username matches members whose username equals username, empty included.
func (MemberSpecs) Username(username string) Specification[entity.Member] {
	return func(root *Root) *query.Predicate {
		return query.NewString(root, "username").Eq(username)
	}
}
