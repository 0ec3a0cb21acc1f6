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

package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/internal/dbtest"
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/types"
)

var (
	member = entity.QMember
	team   = entity.QTeam
)

func setup(t *testing.T) (*dbtest.Env, *query.Factory, *dbtest.Fixture) {
	env := dbtest.Open(t)
	fixture := env.Seed(t)
	return env, query.NewFactory(env.Tx), fixture
}

func usernames(members []*entity.Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	return names
}

func TestRawSQLLookup(t *testing.T) {
	env, _, _ := setup(t)
	var found entity.Member
	err := env.Tx.NewSelect().Model(&found).Where("? = ?", member.Username, "member1").Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "member1", found.Username)
}

func TestSelectFromFetchFirst(t *testing.T) {
	_, qf, _ := setup(t)
	found, err := query.SelectFrom[entity.Member](qf, member).
		Where(member.Username.Eq("member1")).
		FetchFirst(context.Background())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "member1", found.Username)
}

func TestSearchEqAndBetween(t *testing.T) {
	_, qf, _ := setup(t)
	found, err := query.SelectFrom[entity.Member](qf, member).
		Where(member.Username.Eq("member1").And(member.Age.Between(10, 30))).
		FetchOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "member1", found.Username)
	assert.Equal(t, 10, found.Age)
}

func TestSearchWhereParams(t *testing.T) {
	_, qf, _ := setup(t)
	var noConstraint *query.Predicate
	found, err := query.SelectFrom[entity.Member](qf, member).
		Where(member.Username.Eq("member1"), member.Age.Eq(10), noConstraint).
		FetchOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "member1", found.Username)
	assert.Equal(t, 10, found.Age)
}

func TestFetchVariants(t *testing.T) {
	ctx := context.Background()
	_, qf, _ := setup(t)

	all, err := query.SelectFrom[entity.Member](qf, member).Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = query.SelectFrom[entity.Member](qf, member).FetchOne(ctx)
	assert.ErrorIs(t, err, database.ErrNonUniqueResult)

	_, err = query.SelectFrom[entity.Member](qf, member).Limit(1).FetchOne(ctx)
	assert.ErrorIs(t, err, database.ErrNonUniqueResult)

	none, err := query.SelectFrom[entity.Member](qf, member).Where(member.Age.Gt(100)).FetchOne(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := query.SelectFrom[entity.Member](qf, member).OrderBy(member.Age.Desc()).FetchFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, "member4", first.Username)

	results, err := query.SelectFrom[entity.Member](qf, member).
		OrderBy(member.Age.Asc()).Offset(1).Limit(2).
		FetchResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, results.Total)
	assert.Equal(t, 1, results.Offset)
	assert.Equal(t, 2, results.Limit)
	assert.Equal(t, []string{"member2", "member3"}, usernames(results.Results))

	count, err := query.SelectFrom[entity.Member](qf, member).FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	exists, err := query.SelectFrom[entity.Member](qf, member).Where(member.Username.Eq("member9")).Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSortNullsLast(t *testing.T) {
	env, qf, _ := setup(t)
	env.Insert(t,
		entity.NewMember("", 100, nil),
		entity.NewMember("member5", 100, nil),
		entity.NewMember("member6", 100, nil),
	)

	result, err := query.SelectFrom[entity.Member](qf, member).
		Where(member.Age.Eq(100)).
		OrderBy(member.Age.Desc(), member.Username.Asc().NullsLast()).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "member5", result[0].Username)
	assert.Equal(t, "member6", result[1].Username)
	assert.Empty(t, result[2].Username)

	result, err = query.SelectFrom[entity.Member](qf, member).
		Where(member.Age.Eq(100)).
		OrderBy(member.Username.Desc().NullsFirst()).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", "member6", "member5"}, usernames(result))
}

func TestPaging(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := query.SelectFrom[entity.Member](qf, member).
		OrderBy(member.Username.Desc()).
		Offset(1).
		Limit(2).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member2"}, usernames(result))
}

func TestAggregation(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := qf.Select(
		member.Count(),
		member.Age.Sum(),
		member.Age.Avg(),
		member.Age.Max(),
		member.Age.Min(),
	).From(member).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)

	tuple := result[0]
	assert.Equal(t, 5, tuple.Size())
	assert.Equal(t, int64(4), tuple.GetInt64(member.Count()))
	assert.Equal(t, int64(100), tuple.GetInt64(member.Age.Sum()))
	assert.Equal(t, 25.0, tuple.GetFloat64(member.Age.Avg()))
	assert.Equal(t, int64(40), tuple.GetInt64(member.Age.Max()))
	assert.Equal(t, int64(10), tuple.GetInt64(member.Age.Min()))
}

func TestGroupByTeamName(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := qf.Select(team.Name, member.Age.Avg()).
		From(member).
		Join(member.Team).
		GroupBy(team.Name).
		OrderBy(team.Name.Asc()).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "teamA", result[0].GetString(team.Name))
	assert.Equal(t, 15.0, result[0].GetFloat64(member.Age.Avg()))
	assert.Equal(t, "teamB", result[1].GetString(team.Name))
	assert.Equal(t, 35.0, result[1].GetFloat64(member.Age.Avg()))
}

func TestGroupByHaving(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := qf.Select(team.Name, member.Count()).
		From(member).
		Join(member.Team).
		GroupBy(team.Name).
		Having(member.Age.Avg().Gt(20)).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "teamB", result[0].GetString(team.Name))
	assert.Equal(t, int64(2), result[0].GetInt64(member.Count()))
}

func TestInnerJoin(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := query.SelectFrom[entity.Member](qf, member).
		Join(member.Team).
		Where(team.Name.Eq("teamA")).
		OrderBy(member.ID.Asc()).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"member1", "member2"}, usernames(result))
}

func TestThetaJoin(t *testing.T) {
	env, qf, _ := setup(t)
	env.Insert(t, entity.NewMember("teamA", 0, nil), entity.NewMember("teamB", 0, nil))

	result, err := query.SelectFrom[entity.Member](qf, member).
		From(team).
		Where(member.Username.EqExpr(team.Name)).
		OrderBy(member.ID.Asc()).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"teamA", "teamB"}, usernames(result))
}

func TestLeftJoinOnFiltering(t *testing.T) {
	_, qf, _ := setup(t)
	result, err := qf.Select(member.Username, team.Name).
		From(member).
		LeftJoin(member.Team).On(team.Name.Eq("teamA")).
		OrderBy(member.ID.Asc()).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 4)

	assert.Equal(t, "teamA", result[0].Get(team.Name))
	assert.Equal(t, "teamA", result[1].Get(team.Name))
	assert.Nil(t, result[2].Get(team.Name))
	assert.Nil(t, result[3].Get(team.Name))
	assert.Equal(t, "[member3, null]", result[2].String())
}

func TestInnerJoinOnEqualsWhere(t *testing.T) {
	ctx := context.Background()
	_, qf, _ := setup(t)
	on, err := qf.Select(member.Username).From(member).
		Join(member.Team).On(team.Name.Eq("teamA")).
		FetchCount(ctx)
	require.NoError(t, err)
	where, err := qf.Select(member.Username).From(member).
		Join(member.Team).Where(team.Name.Eq("teamA")).
		FetchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, on)
	assert.Equal(t, on, where)
}

func TestLeftJoinOnNoRelation(t *testing.T) {
	env, qf, _ := setup(t)
	env.Insert(t, entity.NewMember("teamA", 0, nil), entity.NewMember("teamB", 0, nil))

	result, err := qf.Select(member.Username, team.Name).
		From(member).
		LeftJoinTo(team).On(member.Username.EqExpr(team.Name)).
		OrderBy(member.ID.Asc()).
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 6)
	for _, tuple := range result[:4] {
		assert.Nil(t, tuple.Get(team.Name), tuple.String())
	}
	assert.Equal(t, "teamA", result[4].GetString(team.Name))
	assert.Equal(t, "teamB", result[5].GetString(team.Name))
}

func TestFetchJoinNo(t *testing.T) {
	_, qf, _ := setup(t)
	found, err := query.SelectFrom[entity.Member](qf, member).
		Join(member.Team).
		Where(member.Username.Eq("member1")).
		FetchOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, query.IsLoaded(found, "Team"))
	assert.NotZero(t, found.TeamID)
}

func TestFetchJoinUse(t *testing.T) {
	env, qf, fixture := setup(t)
	found, err := query.SelectFrom[entity.Member](qf, member).
		Join(member.Team).FetchJoin().
		Where(member.Username.Eq("member1")).
		FetchOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, query.IsLoaded(found, "Team"))
	assert.Equal(t, "teamA", found.Team.Name)
	assert.Equal(t, fixture.TeamA.ID, found.Team.ID)
	assert.Equal(t, 1, env.Queries.Count("SELECT"))
}

func TestFetchJoinInnerSemantics(t *testing.T) {
	ctx := context.Background()
	env, qf, _ := setup(t)
	env.Insert(t, entity.NewMember("loner", 50, nil))

	inner, err := query.SelectFrom[entity.Member](qf, member).Join(member.Team).FetchJoin().Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, inner, 4)

	outer, err := query.SelectFrom[entity.Member](qf, member).
		LeftJoin(member.Team).FetchJoin().
		OrderBy(member.ID.Asc()).
		Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, outer, 5)
	assert.Equal(t, "loner", outer[4].Username)
}

func TestJoinFromTeamSide(t *testing.T) {
	_, qf, _ := setup(t)
	teams, err := query.SelectFrom[entity.Team](qf, team).
		Join(team.Members).
		Where(member.Age.Goe(30)).
		Distinct().
		Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "teamB", teams[0].Name)
	assert.False(t, query.IsLoaded(teams[0], "Members"))
}

func TestStringPredicates(t *testing.T) {
	ctx := context.Background()
	env, qf, _ := setup(t)
	env.Insert(t, entity.NewMember("50%_off", 1, nil))

	count := func(p *query.Predicate) int {
		n, err := query.SelectFrom[entity.Member](qf, member).Where(p).FetchCount(ctx)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 4, count(member.Username.StartsWith("member")))
	assert.Equal(t, 1, count(member.Username.Contains("%_")))
	assert.Equal(t, 0, count(member.Username.Contains("x%")))
	assert.Equal(t, 5, count(member.Username.Like("%")))
	assert.Equal(t, 2, count(member.Username.In("member1", "member3")))
	assert.Equal(t, 0, count(member.Username.In()))
	assert.Equal(t, 3, count(member.Username.NotIn("member1", "member3")))
	assert.Equal(t, 5, count(member.Username.NotIn()))
	assert.Equal(t, 1, count(member.TeamID.IsNull()))
	assert.Equal(t, 2, count(member.Age.In(10, 40)))
	assert.Equal(t, 3, count(query.AnyOf(member.Age.Lt(15), member.Age.Gt(35))))
	assert.Equal(t, 3, count(query.Not(member.Age.Loe(10))))
}

func TestTupleFetchInto(t *testing.T) {
	_, qf, fixture := setup(t)
	type row struct {
		MemberID int64  `bun:"member_id"`
		Username string `bun:"username"`
		TeamName string `bun:"team_name"`
	}
	var rows []row
	err := qf.Select(
		member.ID.As("member_id"),
		member.Username.As("username"),
		query.As(team.Name, "team_name"),
	).From(member).Join(member.Team).
		Where(team.Name.Eq("teamB")).
		OrderBy(member.Age.Asc()).
		FetchInto(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, fixture.Members[2].ID, rows[0].MemberID)
	assert.Equal(t, "member3", rows[0].Username)
	assert.Equal(t, "teamB", rows[1].TeamName)
}

func TestTupleFetchResultsAndOne(t *testing.T) {
	ctx := context.Background()
	_, qf, _ := setup(t)

	page, err := qf.Select(member.Username).From(member).
		OrderBy(member.Username.Asc()).Offset(2).Limit(10).
		FetchResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "member3", page.Results[0].GetAt(0))

	one, err := qf.Select(member.Age).From(member).Where(member.Username.Eq("member2")).FetchOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), one.GetInt64(member.Age))

	_, err = qf.Select(member.Age).From(member).FetchOne(ctx)
	assert.ErrorIs(t, err, database.ErrNonUniqueResult)

	_, err = qf.Select(member.Age).From(member).Limit(1).FetchOne(ctx)
	assert.ErrorIs(t, err, database.ErrNonUniqueResult)
}

func TestDeferredBuilderErrors(t *testing.T) {
	ctx := context.Background()
	_, qf, _ := setup(t)

	_, err := query.SelectFrom[entity.Member](qf, member).On(team.Name.Eq("teamA")).Fetch(ctx)
	assert.ErrorContains(t, err, "On requires a preceding join")

	_, err = query.SelectFrom[entity.Member](qf, member).Join(member.Team).FetchJoin().On(team.Name.Eq("teamA")).Fetch(ctx)
	assert.ErrorContains(t, err, "fetch join cannot have an On condition")

	_, err = query.SelectFrom[entity.Member](qf, member).LeftJoinTo(team).Fetch(ctx)
	assert.ErrorContains(t, err, "requires an On condition")

	_, err = query.SelectFrom[entity.Team](qf, team).Join(team.Members).FetchJoin().Fetch(ctx)
	assert.ErrorContains(t, err, "collection Members")

	_, err = qf.Select(member.Username).Fetch(ctx)
	assert.ErrorContains(t, err, "requires From")

	_, err = query.SelectFrom[entity.Member](qf, member).Limit(-1).Fetch(ctx)
	assert.Error(t, err)
}

func TestSortOf(t *testing.T) {
	_, qf, _ := setup(t)
	sort := types.Sort{types.OrderDesc("age")}
	result, err := query.SelectFrom[entity.Member](qf, member).
		OrderBy(query.SortOf(member, sort)...).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"member4", "member3", "member2", "member1"}, usernames(result))

	result, err = query.SelectFrom[entity.Member](qf, member).
		Join(member.Team).
		OrderBy(query.SortOf(member, types.ParseSort("team.name,desc", "age"))...).
		Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"member3", "member4", "member1", "member2"}, usernames(result))
}
