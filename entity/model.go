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
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Member belongs to at most one Team. An empty Username is stored as NULL.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:member"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,nullzero" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   int64  `bun:"team_id,nullzero" json:"teamId,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	BaseEntity
}

// NewMember creates a member and, when team is not nil, joins it.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, keeping both sides of the association
// in sync. TeamID follows team.ID on the next write of the member.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.removeMember(m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = 0
		return
	}
	m.TeamID = team.ID
	team.addMember(m)
}

var _ bun.BeforeAppendModelHook = (*Member)(nil)

func (m *Member) IsNew() bool { return m.ID == 0 }

// BeforeAppendModel picks up the team key assigned after ChangeTeam.
func (m *Member) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if m.Team != nil && m.Team.ID != 0 {
		m.TeamID = m.Team.ID
	}
	return m.BaseEntity.BeforeAppendModel(ctx, query)
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

// Team is the inverse side of Member.Team.
type Team struct {
	bun.BaseModel `bun:"table:team,alias:team"`

	ID      int64     `bun:"id,pk,autoincrement" json:"id"`
	Name    string    `bun:"name" json:"name"`
	Members []*Member `bun:"rel:has-many,join:id=team_id" json:"members,omitempty"`
	BaseEntity
}

func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) IsNew() bool { return t.ID == 0 }

func (t *Team) String() string {
	return fmt.Sprintf("Team(id=%d, name=%s)", t.ID, t.Name)
}

func (t *Team) addMember(m *Member) {
	for _, existing := range t.Members {
		if existing == m {
			return
		}
	}
	t.Members = append(t.Members, m)
}

func (t *Team) removeMember(m *Member) {
	for i, existing := range t.Members {
		if existing == m {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}

// Item has a client-assigned identifier, so it is new until it has been
// inserted once, which is when CreatedDate is set.
type Item struct {
	bun.BaseModel `bun:"table:item,alias:item"`

	ID          string    `bun:"id,pk" json:"id"`
	CreatedDate time.Time `bun:"created_date,nullzero" json:"createdDate"`
}

var _ bun.BeforeAppendModelHook = (*Item)(nil)

func NewItem(id string) *Item {
	return &Item{ID: id}
}

func (i *Item) IsNew() bool { return i.CreatedDate.IsZero() }

func (i *Item) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && i.CreatedDate.IsZero() {
		i.CreatedDate = clock()
	}
	return nil
}

type Hello struct {
	bun.BaseModel `bun:"table:hello,alias:hello"`

	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

func (h *Hello) IsNew() bool { return h.ID == 0 }
