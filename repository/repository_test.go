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

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/internal/dbtest"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
)

func TestTeamRepositoryCrud(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	teams := repository.NewTeamRepository(env.Tx)

	teamA, err := teams.Save(ctx, entity.NewTeam("teamA"))
	require.NoError(t, err)
	require.NotZero(t, teamA.ID)
	teamB, err := teams.Save(ctx, entity.NewTeam("teamB"))
	require.NoError(t, err)

	found, err := teams.FindByID(ctx, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, "teamA", found.Name)

	n, err := teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := teams.ExistsByID(ctx, teamB.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	teamB.Name = "teamB2"
	_, err = teams.Save(ctx, teamB)
	require.NoError(t, err)
	found, err = teams.FindByID(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, "teamB2", found.Name)

	all, err := teams.FindAll(ctx, types.OrderDesc("name"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "teamB2", all[0].Name)

	byID, err := teams.FindAllByID(ctx, teamA.ID, int64(9999))
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, teamA.ID, byID[0].ID)

	none, err := teams.FindAllByID(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, teams.DeleteByID(ctx, teamA.ID))
	_, err = teams.FindByID(ctx, teamA.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, teams.Delete(ctx, teamB))
	n, err = teams.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveUpdatesMissingEntity(t *testing.T) {
	env := dbtest.Open(t)
	_, err := repository.NewTeamRepository(env.Tx).Save(context.Background(), &entity.Team{ID: 42, Name: "ghost"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestDeleteAll(t *testing.T) {
	env := dbtest.Open(t)
	env.Seed(t)
	members := repository.NewMemberRepository(env.Tx)

	n, err := members.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	count, err := members.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestItemWithAssignedIDIsInserted(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	items := repository.NewItemRepository(env.Tx)

	item := entity.NewItem("A")
	require.True(t, item.IsNew())
	_, err := items.Save(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Queries.Count("INSERT"))
	assert.Zero(t, env.Queries.Count("SELECT"), "a new item is not looked up first")
	assert.False(t, item.IsNew())

	_, err = items.Save(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Queries.Count("UPDATE"))

	n, err := items.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = items.Save(ctx, entity.NewItem("A"))
	assert.ErrorIs(t, err, database.ErrDuplicateKey)
}

func TestHelloRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	hellos := repository.NewHelloRepository(env.Tx)

	hello, err := hellos.Save(ctx, &entity.Hello{})
	require.NoError(t, err)
	assert.NotZero(t, hello.ID)

	found, err := hellos.FindByID(ctx, hello.ID)
	require.NoError(t, err)
	assert.Equal(t, hello.ID, found.ID)

	second, err := hellos.Save(ctx, &entity.Hello{})
	require.NoError(t, err)
	assert.NotEqual(t, hello.ID, second.ID)

	require.NoError(t, hellos.Upsert(ctx, []string{"id"}, nil, &entity.Hello{}))
	n, err := hellos.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSaveMemberAfterTeam(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	teams := repository.NewTeamRepository(env.Tx)
	members := repository.NewMemberRepository(env.Tx)

	team := entity.NewTeam("teamA")
	member := entity.NewMember("member1", 10, team)
	_, err := teams.Save(ctx, team)
	require.NoError(t, err)
	_, err = members.Save(ctx, member)
	require.NoError(t, err)

	found, err := members.FindByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, found.TeamID)
	assert.Equal(t, team.ID, member.TeamID)
}

func TestSaveAll(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	teams := repository.NewTeamRepository(env.Tx)

	require.NoError(t, teams.SaveAll(ctx, entity.NewTeam("teamA"), entity.NewTeam("teamB")))
	n, err := teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = teams.SaveAll(ctx, entity.NewTeam("teamC"), &entity.Team{ID: 999, Name: "ghost"})
	assert.ErrorIs(t, err, database.ErrNotFound)
	n, err = teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a failed SaveAll is rolled back")
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	teams := repository.NewTeamRepository(env.Tx)

	require.NoError(t, teams.Upsert(ctx, []string{"name"}, nil, &entity.Team{ID: 100, Name: "teamA"}))
	require.NoError(t, teams.Upsert(ctx, []string{"name"}, []string{"id"},
		&entity.Team{ID: 100, Name: "teamA2"}, &entity.Team{ID: 101, Name: "teamB"}))

	found, err := teams.FindByID(ctx, int64(100))
	require.NoError(t, err)
	assert.Equal(t, "teamA2", found.Name)

	n, err := teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, teams.Upsert(ctx, nil, nil, &entity.Team{ID: 100}))
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	env.Seed(t)
	members := repository.NewMemberRepository(env.Tx)

	page, err := members.Page(ctx, types.NewPageRequestWithSort(1, 3, types.By(types.Desc, "username")))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.True(t, page.HasNext())
	require.Len(t, page.Items, 3)
	assert.Equal(t, "member4", page.Items[0].Username)
	assert.Equal(t, "member2", page.Items[2].Username)

	filtered, err := members.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.NewQueryFilter("age > ?", 25)))
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Total)

	empty, err := members.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.NewQueryFilter("age > ?", 100)))
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Items)
}

func TestListAndQuery(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	env.Seed(t)
	members := repository.NewMemberRepository(env.Tx)

	list, err := members.List(ctx, types.NewQueryFilter("username = ?", "member2"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 20, list[0].Age)

	list, err = members.Query(ctx, "age BETWEEN ? AND ?", 10, 30)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
