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
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/repository"
	"github.com/tomoncle/datastudy/types"
)

func setupMembers(t *testing.T) (*dbtest.Env, *repository.MemberRepository, *dbtest.Fixture) {
	t.Helper()
	env := dbtest.Open(t)
	fixture := env.Seed(t)
	return env, repository.NewMemberRepository(env.Tx), fixture
}

func TestDerivedQueries(t *testing.T) {
	ctx := context.Background()
	env, members, _ := setupMembers(t)
	env.Insert(t, entity.NewMember("member1", 5, nil))

	result, err := members.FindByUsername(ctx, "member1")
	require.NoError(t, err)
	assert.Len(t, result, 2)

	result, err = members.FindByUsernameAndAgeGreaterThan(ctx, "member1", 8)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 10, result[0].Age)

	result, err = members.FindTop3ByOrderByAgeDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"member4", "member3", "member2"}, usernames(result))

	result, err = members.FindByNames(ctx, []string{"member2", "member3", "nobody"})
	require.NoError(t, err)
	assert.Equal(t, []string{"member2", "member3"}, usernames(result))

	result, err = members.FindByNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFindSingleByUsername(t *testing.T) {
	ctx := context.Background()
	env, members, fixture := setupMembers(t)

	m, err := members.FindSingleByUsername(ctx, "member3")
	require.NoError(t, err)
	assert.Equal(t, fixture.Members[2].ID, m.ID)

	_, err = members.FindSingleByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, database.ErrNotFound)

	env.Insert(t, entity.NewMember("member3", 99, nil))
	_, err = members.FindSingleByUsername(ctx, "member3")
	assert.ErrorIs(t, err, database.ErrNonUniqueResult)
}

func TestFindUsernameList(t *testing.T) {
	env, members, _ := setupMembers(t)
	env.Insert(t, entity.NewMember("", 1, nil))

	names, err := members.FindUsernameList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"member1", "member2", "member3", "member4", ""}, names)
}

func TestFindMemberDto(t *testing.T) {
	env, members, fixture := setupMembers(t)
	env.Insert(t, entity.NewMember("solo", 1, nil))

	dtos, err := members.FindMemberDto(context.Background())
	require.NoError(t, err)
	require.Len(t, dtos, 4, "members without a team are not listed")
	assert.Equal(t, repository.MemberDto{ID: fixture.Members[0].ID, Username: "member1", TeamName: "teamA"}, *dtos[0])
	assert.Equal(t, "teamB", dtos[3].TeamName)
}

func TestFindByAgePaging(t *testing.T) {
	ctx := context.Background()
	env := dbtest.Open(t)
	for _, name := range []string{"member1", "member2", "member3", "member4", "member5"} {
		env.Insert(t, entity.NewMember(name, 10, nil))
	}
	env.Insert(t, entity.NewMember("other", 11, nil))
	members := repository.NewMemberRepository(env.Tx)

	page, err := members.FindByAge(ctx, 10, types.NewPageRequestWithSort(1, 3, types.By(types.Desc, "username")))
	require.NoError(t, err)
	assert.Equal(t, []string{"member5", "member4", "member3"}, usernames(page.Items))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.True(t, page.IsFirst())
	assert.True(t, page.HasNext())

	next, err := members.FindByAge(ctx, 10, types.NewPageRequestWithSort(1, 3, types.By(types.Desc, "username")).Next())
	require.NoError(t, err)
	assert.Equal(t, []string{"member2", "member1"}, usernames(next.Items))
	assert.True(t, next.IsLast())

	dtos := types.MapPagination(page, func(m *entity.Member) *repository.MemberDto {
		return &repository.MemberDto{ID: m.ID, Username: m.Username}
	})
	assert.Equal(t, 5, dtos.Total)
	assert.Equal(t, "member5", dtos.Items[0].Username)
}

func TestBulkAgePlus(t *testing.T) {
	ctx := context.Background()
	_, members, fixture := setupMembers(t)

	n, err := members.BulkAgePlus(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.Equal(t, 40, fixture.Members[3].Age, "loaded entities are stale")
	result, err := members.FindByUsername(ctx, "member4")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 41, result[0].Age)

	result, err = members.FindByUsername(ctx, "member1")
	require.NoError(t, err)
	assert.Equal(t, 10, result[0].Age)
}

func TestLazyLoadingIssuesOneQueryPerMember(t *testing.T) {
	ctx := context.Background()
	env, members, _ := setupMembers(t)

	all, err := members.FindAll(ctx, types.OrderAsc("id"))
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, m := range all {
		assert.False(t, query.IsLoaded(m, "Team"))
		assert.NotZero(t, m.TeamID)
	}

	for _, m := range all {
		team, err := members.LoadTeam(ctx, m)
		require.NoError(t, err)
		assert.Same(t, team, m.Team)
	}
	assert.Equal(t, "teamA", all[0].Team.Name)
	assert.Equal(t, "teamB", all[3].Team.Name)
	assert.Equal(t, 1+len(all), env.Queries.Count("SELECT"))

	_, err = members.LoadTeam(ctx, all[0])
	require.NoError(t, err)
	assert.Equal(t, 2+len(all), env.Queries.Count("SELECT"), "nothing is cached")

	team, err := members.LoadTeam(ctx, entity.NewMember("solo", 1, nil))
	require.NoError(t, err)
	assert.Nil(t, team)
}

func TestFetchJoinIssuesOneQuery(t *testing.T) {
	env, members, _ := setupMembers(t)
	env.Insert(t, entity.NewMember("solo", 1, nil))
	env.Queries.Reset()

	all, err := members.FindMemberFetchJoin(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, 1, env.Queries.Count("SELECT"))
	assert.Equal(t, "teamA", all[0].Team.Name)
	assert.Equal(t, "teamB", all[3].Team.Name)
	assert.True(t, query.IsLoaded(all[0], "Team"))
	assert.Nil(t, all[4].Team)
}

func intPtr(v int) *int { return &v }

func TestSearch(t *testing.T) {
	ctx := context.Background()
	_, members, fixture := setupMembers(t)

	result, err := members.Search(ctx, &repository.MemberSearchCondition{
		TeamName: "teamB",
		AgeGoe:   intPtr(35),
		AgeLoe:   intPtr(40),
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, repository.MemberTeamDto{
		MemberID: fixture.Members[3].ID,
		Username: "member4",
		Age:      40,
		TeamID:   fixture.TeamB.ID,
		TeamName: "teamB",
	}, *result[0])

	result, err = members.Search(ctx, &repository.MemberSearchCondition{Username: " "})
	require.NoError(t, err)
	assert.Len(t, result, 4, "blank conditions are ignored")

	result, err = members.Search(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, result, 4)
}

func TestSearchPage(t *testing.T) {
	ctx := context.Background()
	env, members, _ := setupMembers(t)

	page, err := members.SearchPage(ctx, &repository.MemberSearchCondition{}, types.NewDefaultPageRequest(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "member1", page.Items[0].Username)
	assert.Equal(t, 2, env.Queries.Count("SELECT"))

	env.Queries.Reset()
	page, err = members.SearchPage(ctx, &repository.MemberSearchCondition{}, types.NewDefaultPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, env.Queries.Count("SELECT"), "no count query for a partial first page")

	page, err = members.SearchPage(ctx, &repository.MemberSearchCondition{},
		types.NewPageRequestWithSort(2, 3, types.By(types.Desc, "age")))
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "member1", page.Items[0].Username)
}

func TestFindAllWithTeamNamed(t *testing.T) {
	_, members, fixture := setupMembers(t)

	rows, err := members.FindAllWithTeamNamed(context.Background(), "teamA")
	require.NoError(t, err)
	require.Len(t, rows, 4, "the on condition does not drop members")
	assert.Equal(t, "teamA", rows[0].TeamName)
	assert.Equal(t, fixture.TeamA.ID, rows[1].TeamID)
	assert.Empty(t, rows[2].TeamName)
	assert.Zero(t, rows[3].TeamID)
}

func TestFindAllWithTeamByName(t *testing.T) {
	env, members, fixture := setupMembers(t)
	env.Insert(t,
		entity.NewMember("teamA", 1, nil),
		entity.NewMember("teamB", 2, nil),
		entity.NewMember("teamC", 3, nil),
	)

	rows, err := members.FindAllWithTeamByName(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 7)
	for _, row := range rows[:4] {
		assert.Empty(t, row.TeamName)
	}
	assert.Equal(t, fixture.TeamA.ID, rows[4].TeamID)
	assert.Equal(t, "teamB", rows[5].TeamName)
	assert.Zero(t, rows[6].TeamID)
}

func TestMemberRepositoryWithTx(t *testing.T) {
	ctx := context.Background()
	db := dbtest.OpenDB(t)
	members := repository.NewMemberRepository(db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = members.WithTx(tx).Save(ctx, entity.NewMember("member1", 10, nil))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	n, err := members.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
