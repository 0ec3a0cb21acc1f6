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

package entity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/internal/dbtest"
)

func TestChangeTeamKeepsBothSidesInSync(t *testing.T) {
	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	teamA.ID, teamB.ID = 1, 2

	m := entity.NewMember("member1", 10, teamA)
	assert.Equal(t, int64(1), m.TeamID)
	assert.Equal(t, []*entity.Member{m}, teamA.Members)

	m.ChangeTeam(teamA)
	assert.Len(t, teamA.Members, 1)

	m.ChangeTeam(teamB)
	assert.Equal(t, int64(2), m.TeamID)
	assert.Empty(t, teamA.Members)
	assert.Equal(t, []*entity.Member{m}, teamB.Members)

	m.ChangeTeam(nil)
	assert.Zero(t, m.TeamID)
	assert.Nil(t, m.Team)
	assert.Empty(t, teamB.Members)
}

func TestIsNew(t *testing.T) {
	assert.True(t, entity.NewMember("m", 1, nil).IsNew())
	assert.False(t, (&entity.Team{ID: 3}).IsNew())
	assert.True(t, (&entity.Hello{}).IsNew())

	// an assigned id does not make an item persisted
	assert.True(t, entity.NewItem("A").IsNew())
}

func TestAuditorFrom(t *testing.T) {
	ctx := context.Background()
	_, err := uuid.Parse(entity.AuditorFrom(ctx))
	assert.NoError(t, err)
	assert.NotEqual(t, entity.AuditorFrom(ctx), entity.AuditorFrom(ctx))
	assert.Equal(t, "tester", entity.AuditorFrom(entity.WithAuditor(ctx, "tester")))
}

func TestAuditingColumns(t *testing.T) {
	env := dbtest.Open(t)
	ctx := entity.WithAuditor(context.Background(), "creator")
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	modified := created.Add(time.Hour)
	restore := entity.SetClock(func() time.Time { return created })
	defer restore()

	team := entity.NewTeam("teamA")
	_, err := env.Tx.NewInsert().Model(team).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, "creator", team.CreatedBy)
	assert.Equal(t, "creator", team.LastModifiedBy)
	assert.True(t, team.CreatedDate.Equal(created))

	entity.SetClock(func() time.Time { return modified })
	team.Name = "teamA2"
	_, err = env.Tx.NewUpdate().Model(team).WherePK().Exec(entity.WithAuditor(context.Background(), "editor"))
	require.NoError(t, err)

	var reloaded entity.Team
	require.NoError(t, env.Tx.NewSelect().Model(&reloaded).Where("? = ?", entity.QTeam.ID, team.ID).Scan(ctx))
	assert.Equal(t, "teamA2", reloaded.Name)
	assert.Equal(t, "creator", reloaded.CreatedBy)
	assert.Equal(t, "editor", reloaded.LastModifiedBy)
	assert.True(t, reloaded.CreatedDate.Equal(created), "created date is kept")
	assert.True(t, reloaded.LastModifiedDate.Equal(modified))
}

func TestItemCreatedDate(t *testing.T) {
	env := dbtest.Open(t)
	item := entity.NewItem("A")
	env.Insert(t, item)
	assert.False(t, item.IsNew())

	var reloaded entity.Item
	require.NoError(t, env.Tx.NewSelect().Model(&reloaded).Where("? = ?", entity.QItem.ID, "A").Scan(context.Background()))
	assert.False(t, reloaded.IsNew())
}

func TestMemberTakesTeamKeyOnInsert(t *testing.T) {
	env := dbtest.Open(t)
	team := entity.NewTeam("teamA")
	member := entity.NewMember("member1", 10, team)
	assert.Zero(t, member.TeamID)

	env.Insert(t, team)
	env.Insert(t, member)
	assert.Equal(t, team.ID, member.TeamID)

	var reloaded entity.Member
	require.NoError(t, env.Tx.NewSelect().Model(&reloaded).Where("? = ?", entity.QMember.ID, member.ID).Scan(context.Background()))
	assert.Equal(t, team.ID, reloaded.TeamID)
}

func TestEmptyUsernameIsNull(t *testing.T) {
	env := dbtest.Open(t)
	env.Insert(t, entity.NewMember("", 100, nil))

	n, err := env.Tx.NewSelect().Model((*entity.Member)(nil)).Where("? IS NULL", entity.QMember.Username).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPathsAndRegistry(t *testing.T) {
	assert.Same(t, entity.QTeam, entity.QMember.Team.Target)
	assert.Equal(t, "team_id", entity.QMember.Team.SourceColumn)
	assert.Equal(t, "member", entity.QTeam.Members.Target.Alias())
	assert.Equal(t, "member.username", entity.QMember.Username.Key())

	models := database.RegisteredModelInstances()
	require.GreaterOrEqual(t, len(models), 4)
	assert.IsType(t, (*entity.Team)(nil), models[0])
	assert.IsType(t, (*entity.Member)(nil), models[1])
}
