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
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/entity"
	"github.com/tomoncle/datastudy/query"
	"github.com/tomoncle/datastudy/types"
)

// MemberRepository adds the member finders, projections and bulk updates to
// the generic repository.
type MemberRepository struct {
	Repository[entity.Member]
	db bun.IDB
	qf *query.Factory
}

func NewMemberRepository(db bun.IDB) *MemberRepository {
	return &MemberRepository{
		Repository: NewRepository[entity.Member](db, entity.QMember),
		db:         db,
		qf:         query.NewFactory(db),
	}
}

func (r *MemberRepository) WithTx(tx bun.Tx) *MemberRepository {
	return NewMemberRepository(tx)
}

func (r *MemberRepository) members() *query.EntityQuery[entity.Member] {
	return query.SelectFrom[entity.Member](r.qf, entity.QMember)
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.members().
		Where(entity.QMember.Username.Eq(username)).
		OrderBy(entity.QMember.ID.Asc()).
		Fetch(ctx)
}

func (r *MemberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	m := entity.QMember
	return r.members().
		Where(m.Username.Eq(username), m.Age.Gt(age)).
		OrderBy(m.ID.Asc()).
		Fetch(ctx)
}

func (r *MemberRepository) FindTop3ByOrderByAgeDesc(ctx context.Context) ([]*entity.Member, error) {
	return r.members().OrderBy(entity.QMember.Age.Desc()).Limit(3).Fetch(ctx)
}

func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	return r.members().
		Where(entity.QMember.Username.In(names...)).
		OrderBy(entity.QMember.ID.Asc()).
		Fetch(ctx)
}

// FindSingleByUsername fails with database.ErrNotFound when no member has the
// username and with database.ErrNonUniqueResult when several have it.
func (r *MemberRepository) FindSingleByUsername(ctx context.Context, username string) (*entity.Member, error) {
	member, err := r.members().Where(entity.QMember.Username.Eq(username)).FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("member %q: %w", username, database.ErrNotFound)
	}
	return member, nil
}

// FindUsernameList returns every username in id order. Members without a
// username give an empty string.
func (r *MemberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	m := entity.QMember
	tuples, err := r.qf.Select(m.Username).From(m).OrderBy(m.ID.Asc()).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tuples))
	for i, t := range tuples {
		names[i] = t.GetString(m.Username)
	}
	return names, nil
}

// FindMemberDto lists the members that have a team.
func (r *MemberRepository) FindMemberDto(ctx context.Context) ([]*MemberDto, error) {
	m, t := entity.QMember, entity.QTeam
	dtos := make([]*MemberDto, 0)
	err := r.qf.Select(m.ID.As("id"), m.Username.As("username"), t.Name.As("team_name")).
		From(m).
		Join(m.Team).
		OrderBy(m.ID.Asc()).
		FetchInto(ctx, &dtos)
	return dtos, err
}

// FindByAge pages the members of the given age.
func (r *MemberRepository) FindByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Pagination[entity.Member], error) {
	return r.PageBy(ctx, func(root *Root) *query.Predicate {
		return query.NewNumber[int](root, "age").Eq(age)
	}, page)
}

// BulkAgePlus increments the age of every member at least age years old and
// returns the number of updated rows. Members already loaded are not
// refreshed.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	res, err := r.db.NewUpdate().
		Model(&entity.Member{}).
		Set("? = ? + 1", bun.Ident("age"), bun.Ident("age")).
		Where("? >= ?", entity.QMember.Age, age).
		Exec(ctx)
	if err != nil {
		return 0, database.Translate(err)
	}
	return res.RowsAffected()
}

// FindMemberFetchJoin loads every member together with its team in one
// statement.
func (r *MemberRepository) FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error) {
	return r.members().
		LeftJoin(entity.QMember.Team).FetchJoin().
		OrderBy(entity.QMember.ID.Asc()).
		Fetch(ctx)
}

// LoadTeam loads the team of m and sets it on m. Every call queries the
// database.
func (r *MemberRepository) LoadTeam(ctx context.Context, m *entity.Member) (*entity.Team, error) {
	if m.TeamID == 0 {
		m.Team = nil
		return nil, nil
	}
	team, err := query.SelectFrom[entity.Team](r.qf, entity.QTeam).
		Where(entity.QTeam.ID.Eq(m.TeamID)).
		FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("team %d of member %d: %w", m.TeamID, m.ID, database.ErrNotFound)
	}
	m.Team = team
	return team, nil
}

func (r *MemberRepository) memberTeams() *query.TupleQuery {
	m, t := entity.QMember, entity.QTeam
	return r.qf.Select(
		m.ID.As("member_id"),
		m.Username.As("username"),
		m.Age.As("age"),
		t.ID.As("team_id"),
		t.Name.As("team_name"),
	).From(m)
}

func (r *MemberRepository) searchQuery(cond *MemberSearchCondition) *query.TupleQuery {
	if cond == nil {
		cond = &MemberSearchCondition{}
	}
	return r.memberTeams().
		LeftJoin(entity.QMember.Team).
		Where(
			usernameEq(cond.Username),
			teamNameEq(cond.TeamName),
			ageGoe(cond.AgeGoe),
			ageLoe(cond.AgeLoe),
		)
}

// Search returns the members matching the set fields of cond with their team.
func (r *MemberRepository) Search(ctx context.Context, cond *MemberSearchCondition) ([]*MemberTeamDto, error) {
	dtos := make([]*MemberTeamDto, 0)
	err := r.searchQuery(cond).OrderBy(entity.QMember.ID.Asc()).FetchInto(ctx, &dtos)
	return dtos, err
}

// SearchPage is Search restricted to one page. The count query is skipped
// when the first page is not full.
func (r *MemberRepository) SearchPage(ctx context.Context, cond *MemberSearchCondition, page *types.PageRequest) (*types.Pagination[MemberTeamDto], error) {
	q := r.searchQuery(cond)
	orders := query.SortOf(entity.QMember, page.GetSort())
	if len(orders) == 0 {
		orders = append(orders, entity.QMember.ID.Asc())
	}
	dtos := make([]*MemberTeamDto, 0)
	err := q.OrderBy(orders...).
		Offset(page.GetOffset()).
		Limit(page.GetPageSize()).
		FetchInto(ctx, &dtos)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[MemberTeamDto](page.GetPage(), page.GetPageSize())
	pagination.Items = dtos
	if page.GetOffset() == 0 && len(dtos) < page.GetPageSize() {
		pagination.Total = len(dtos)
		return pagination, nil
	}
	if pagination.Total, err = q.FetchCount(ctx); err != nil {
		return nil, err
	}
	return pagination, nil
}

// FindAllWithTeamNamed outer-joins every member with its team, keeping the
// team only when it is named teamName.
func (r *MemberRepository) FindAllWithTeamNamed(ctx context.Context, teamName string) ([]*MemberTeamDto, error) {
	dtos := make([]*MemberTeamDto, 0)
	err := r.memberTeams().
		LeftJoin(entity.QMember.Team).On(entity.QTeam.Name.Eq(teamName)).
		OrderBy(entity.QMember.ID.Asc()).
		FetchInto(ctx, &dtos)
	return dtos, err
}

// FindAllWithTeamByName outer-joins every member with the team whose name is
// the member's username, whether or not the member belongs to it.
func (r *MemberRepository) FindAllWithTeamByName(ctx context.Context) ([]*MemberTeamDto, error) {
	m, t := entity.QMember, entity.QTeam
	dtos := make([]*MemberTeamDto, 0)
	err := r.memberTeams().
		LeftJoinTo(t).On(m.Username.EqExpr(t.Name)).
		OrderBy(m.ID.Asc()).
		FetchInto(ctx, &dtos)
	return dtos, err
}

func usernameEq(username string) *query.Predicate {
	if strings.TrimSpace(username) == "" {
		return nil
	}
	return entity.QMember.Username.Eq(username)
}

func teamNameEq(teamName string) *query.Predicate {
	if strings.TrimSpace(teamName) == "" {
		return nil
	}
	return entity.QTeam.Name.Eq(teamName)
}

func ageGoe(age *int) *query.Predicate {
	if age == nil {
		return nil
	}
	return entity.QMember.Age.Goe(*age)
}

func ageLoe(age *int) *query.Predicate {
	if age == nil {
		return nil
	}
	return entity.QMember.Age.Loe(*age)
}

func NewTeamRepository(db bun.IDB) Repository[entity.Team] {
	return NewRepository[entity.Team](db, entity.QTeam)
}

func NewItemRepository(db bun.IDB) Repository[entity.Item] {
	return NewRepository[entity.Item](db, entity.QItem)
}

func NewHelloRepository(db bun.IDB) Repository[entity.Hello] {
	return NewRepository[entity.Hello](db, entity.QHello)
}
