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
	"fmt"
)

// MemberDto is a member with the name of its team.
type MemberDto struct {
	ID       int64  `bun:"id" json:"id"`
	Username string `bun:"username" json:"username"`
	TeamName string `bun:"team_name" json:"teamName"`
}

func (d *MemberDto) String() string {
	return fmt.Sprintf("MemberDto(id=%d, username=%s, teamName=%s)", d.ID, d.Username, d.TeamName)
}

// MemberTeamDto is one row of a member outer-joined with a team. The team
// columns are zero when no team matched.
type MemberTeamDto struct {
	MemberID int64  `bun:"member_id" json:"memberId"`
	Username string `bun:"username" json:"username"`
	Age      int    `bun:"age" json:"age"`
	TeamID   int64  `bun:"team_id" json:"teamId"`
	TeamName string `bun:"team_name" json:"teamName"`
}

func (d *MemberTeamDto) String() string {
	return fmt.Sprintf("MemberTeamDto(memberId=%d, username=%s, age=%d, teamId=%d, teamName=%s)",
		d.MemberID, d.Username, d.Age, d.TeamID, d.TeamName)
}

// MemberSearchCondition holds the optional filters of a member search. Empty
// strings and nil bounds are ignored.
type MemberSearchCondition struct {
	Username string `json:"username"`
	TeamName string `json:"teamName"`
	AgeGoe   *int   `json:"ageGoe"`
	AgeLoe   *int   `json:"ageLoe"`
}
