// Package repotest holds behavior checks shared by every repository backend.
// Each backend's tests build a Repos value over its own store and call Run.
package repotest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
	"github.com/rolodex/rolodex/api/internal/service"
)

// Repos is the set of repositories under test
type Repos struct {
	Organizations service.OrganizationRepository
	People        service.PersonRepository
	Assignments   service.AssignmentRepository
	Users         service.UserRepository
}

// Run executes every shared check. newRepos must return repositories over an
// isolated store; owners are random per test so a shared database also works.
func Run(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("organization CRUD", func(t *testing.T) { testOrganizationCRUD(t, newRepos(t)) })
	t.Run("person update keeps edges", func(t *testing.T) { testPersonUpdateKeepsEdges(t, newRepos(t)) })
	t.Run("owner isolation", func(t *testing.T) { testOwnerIsolation(t, newRepos(t)) })
	t.Run("edge operations", func(t *testing.T) { testEdgeOperations(t, newRepos(t)) })
	t.Run("cached names", func(t *testing.T) { testCachedNames(t, newRepos(t)) })
	t.Run("version guard", func(t *testing.T) { testVersionGuard(t, newRepos(t)) })
	t.Run("list paging", func(t *testing.T) { testListPaging(t, newRepos(t)) })
	t.Run("assignments", func(t *testing.T) { testAssignments(t, newRepos(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newRepos(t)) })
}

// NewOrganization builds an unsaved organization
func NewOrganization(owner, name string, people ...domain.RelationshipEdge) *domain.Organization {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Organization{
		ID:        uuid.New(),
		OwnerID:   owner,
		Name:      name,
		People:    append([]domain.RelationshipEdge{}, people...),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewPerson builds an unsaved person
func NewPerson(owner, name string, orgs ...domain.RelationshipEdge) *domain.Person {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Person{
		ID:            uuid.New(),
		OwnerID:       owner,
		Name:          name,
		Organizations: append([]domain.RelationshipEdge{}, orgs...),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func owner() string {
	return "owner-" + uuid.NewString()
}

func testOrganizationCRUD(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	org := NewOrganization(o, "Acme")
	org.Industry = "Manufacturing"
	require.NoError(t, r.Organizations.Create(ctx, org))

	got, err := r.Organizations.GetByID(ctx, o, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "Manufacturing", got.Industry)
	assert.Empty(t, got.People)
	assert.Equal(t, int64(1), got.Version)

	got.Name = "Acme Corp"
	require.NoError(t, r.Organizations.Update(ctx, got, domain.UpdateOptions{}))
	assert.Equal(t, int64(2), got.Version)

	again, err := r.Organizations.GetByID(ctx, o, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", again.Name)

	require.NoError(t, r.Organizations.Delete(ctx, o, org.ID))
	_, err = r.Organizations.GetByID(ctx, o, org.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(r.Organizations.Delete(ctx, o, org.ID)))
}

func testPersonUpdateKeepsEdges(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	orgID := uuid.New()
	p := NewPerson(o, "Ada", domain.RelationshipEdge{CounterpartID: orgID, CounterpartName: "Acme", Role: "Engineer"})
	require.NoError(t, r.People.Create(ctx, p))

	// A scalar update must not overwrite edges pushed in the meantime.
	stale, err := r.People.GetByID(ctx, o, p.ID)
	require.NoError(t, err)
	other := uuid.New()
	pushed, err := r.People.PushEdge(ctx, o, p.ID, domain.RelationshipEdge{CounterpartID: other, CounterpartName: "Globex"})
	require.NoError(t, err)
	require.True(t, pushed)

	stale.Email = "ada@example.com"
	require.NoError(t, r.People.Update(ctx, stale, domain.UpdateOptions{}))

	got, err := r.People.GetByID(ctx, o, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Len(t, got.Organizations, 2)

	got.Organizations = nil
	require.NoError(t, r.People.Update(ctx, got, domain.UpdateOptions{ReplaceEdges: true}))
	got, err = r.People.GetByID(ctx, o, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Organizations)
}

func testOwnerIsolation(t *testing.T, r Repos) {
	ctx := context.Background()
	a, b := owner(), owner()
	org := NewOrganization(a, "Private")
	require.NoError(t, r.Organizations.Create(ctx, org))

	_, err := r.Organizations.GetByID(ctx, b, org.ID)
	assert.True(t, apperrors.IsNotFound(err))

	ok, err := r.Organizations.Exists(ctx, b, org.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	nodes, err := r.Organizations.GetNodes(ctx, b, []uuid.UUID{org.ID})
	require.NoError(t, err)
	assert.Empty(t, nodes)

	_, err = r.Organizations.PushEdge(ctx, b, org.ID, domain.RelationshipEdge{CounterpartID: uuid.New()})
	assert.True(t, apperrors.IsNotFound(err))

	list, err := r.Organizations.List(ctx, b, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func testEdgeOperations(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	org := NewOrganization(o, "Acme")
	require.NoError(t, r.Organizations.Create(ctx, org))
	pid := uuid.New()
	start := domain.NewDate(2020, time.January, 1)

	edge := domain.RelationshipEdge{CounterpartID: pid, CounterpartName: "Ada", Role: "Engineer", StartDate: &start}
	pushed, err := r.Organizations.PushEdge(ctx, o, org.ID, edge)
	require.NoError(t, err)
	assert.True(t, pushed)

	pushed, err = r.Organizations.PushEdge(ctx, o, org.ID, edge)
	require.NoError(t, err)
	assert.False(t, pushed, "guarded push must not duplicate")

	edge.Role = "CTO"
	edge.CounterpartName = "Ada L."
	matched, err := r.Organizations.UpdateEdge(ctx, o, org.ID, edge, false)
	require.NoError(t, err)
	assert.True(t, matched)

	node, err := r.Organizations.GetNode(ctx, o, org.ID)
	require.NoError(t, err)
	require.Len(t, node.Edges, 1)
	assert.Equal(t, "CTO", node.Edges[0].Role)
	assert.Equal(t, "Ada", node.Edges[0].CounterpartName, "name untouched without withName")
	require.NotNil(t, node.Edges[0].StartDate)
	assert.True(t, start.Equal(node.Edges[0].StartDate.Time))

	matched, err = r.Organizations.UpdateEdge(ctx, o, org.ID, domain.RelationshipEdge{CounterpartID: uuid.New()}, true)
	require.NoError(t, err)
	assert.False(t, matched)

	refs, err := r.Organizations.ListReferencing(ctx, o, pid)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{org.ID}, refs)

	removed, err := r.Organizations.PullEdge(ctx, o, org.ID, pid)
	require.NoError(t, err)
	assert.True(t, removed)
	before, err := r.Organizations.GetNode(ctx, o, org.ID)
	require.NoError(t, err)
	removed, err = r.Organizations.PullEdge(ctx, o, org.ID, pid)
	require.NoError(t, err)
	assert.False(t, removed)
	after, err := r.Organizations.GetNode(ctx, o, org.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "a pull that removes nothing keeps the version")

	replaced, err := r.Organizations.ReplaceEdges(ctx, o, org.ID, []domain.RelationshipEdge{{CounterpartID: pid, Role: "Advisor"}}, nil)
	require.NoError(t, err)
	require.Len(t, replaced.Edges, 1)
	assert.Equal(t, "Advisor", replaced.Edges[0].Role)
}

func testCachedNames(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	pid := uuid.New()
	org1 := NewOrganization(o, "One", domain.RelationshipEdge{CounterpartID: pid, CounterpartName: "Old"})
	org2 := NewOrganization(o, "Two", domain.RelationshipEdge{CounterpartID: pid, CounterpartName: "Old"})
	org3 := NewOrganization(o, "Three")
	elsewhere := NewOrganization(owner(), "Elsewhere", domain.RelationshipEdge{CounterpartID: pid, CounterpartName: "Old"})
	for _, org := range []*domain.Organization{org1, org2, org3, elsewhere} {
		require.NoError(t, r.Organizations.Create(ctx, org))
	}

	n, err := r.Organizations.SetCachedName(ctx, o, pid, "New")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = r.Organizations.SetCachedName(ctx, o, pid, "New")
	require.NoError(t, err)
	assert.Zero(t, n, "rename is idempotent")

	got, err := r.Organizations.GetByID(ctx, elsewhere.OwnerID, elsewhere.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old", got.People[0].CounterpartName)

	refs, err := r.Organizations.ListReferencing(ctx, o, pid)
	require.NoError(t, err)
	want := []uuid.UUID{org1.ID, org2.ID}
	sort.Slice(want, func(i, j int) bool { return want[i].String() < want[j].String() })
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	assert.Equal(t, want, refs)
}

func testVersionGuard(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	org := NewOrganization(o, "Acme")
	require.NoError(t, r.Organizations.Create(ctx, org))

	stale := int64(1)
	_, err := r.Organizations.PushEdge(ctx, o, org.ID, domain.RelationshipEdge{CounterpartID: uuid.New()})
	require.NoError(t, err)

	_, err = r.Organizations.ReplaceEdges(ctx, o, org.ID, nil, &stale)
	assert.True(t, apperrors.IsConflict(err))

	copyOrg := *org
	err = r.Organizations.Update(ctx, &copyOrg, domain.UpdateOptions{ExpectedVersion: &stale})
	assert.True(t, apperrors.IsConflict(err))

	node, err := r.Organizations.GetNode(ctx, o, org.ID)
	require.NoError(t, err)
	current := node.Version
	_, err = r.Organizations.ReplaceEdges(ctx, o, org.ID, nil, &current)
	require.NoError(t, err)
}

func testListPaging(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	for _, name := range []string{"charlie", "Alpha", "bravo"} {
		require.NoError(t, r.People.Create(ctx, NewPerson(o, name)))
	}

	list, err := r.People.List(ctx, o, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.TotalCount)
	assert.True(t, list.HasMore)
	require.Len(t, list.People, 2)
	assert.Equal(t, "Alpha", list.People[0].Name)
	assert.Equal(t, "bravo", list.People[1].Name)

	list, err = r.People.List(ctx, o, 2, 2)
	require.NoError(t, err)
	assert.False(t, list.HasMore)
	require.Len(t, list.People, 1)
	assert.Equal(t, "charlie", list.People[0].Name)

	all, err := r.People.List(ctx, o, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all.People, 3)
}

func testAssignments(t *testing.T, r Repos) {
	ctx := context.Background()
	o := owner()
	p := NewPerson(o, "Ada")
	org := NewOrganization(o, "Acme")
	require.NoError(t, r.People.Create(ctx, p))
	require.NoError(t, r.Organizations.Create(ctx, org))

	now := time.Now().UTC().Truncate(time.Millisecond)
	start := domain.NewDate(2021, time.March, 1)
	a := &domain.Assignment{
		ID: uuid.New(), OwnerID: o, PersonID: p.ID, OrganizationID: org.ID,
		PersonName: p.Name, OrganizationName: org.Name, Title: "Engineer",
		StartDate: &start, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, r.Assignments.Create(ctx, a))

	got, err := r.Assignments.GetByID(ctx, o, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", got.Title)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2021-03-01", got.StartDate.String())

	byPerson, err := r.Assignments.ListByParent(ctx, o, p.Ref())
	require.NoError(t, err)
	assert.Len(t, byPerson, 1)
	byOrg, err := r.Assignments.ListByParent(ctx, o, org.Ref())
	require.NoError(t, err)
	assert.Len(t, byOrg, 1)
	pair, err := r.Assignments.ListByPair(ctx, o, p.ID, org.ID)
	require.NoError(t, err)
	assert.Len(t, pair, 1)

	n, err := r.Assignments.SetCachedName(ctx, o, org.Ref(), "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = r.Assignments.GetByID(ctx, o, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.OrganizationName)
	assert.Equal(t, "Ada", got.PersonName)

	got.Title = "Staff Engineer"
	require.NoError(t, r.Assignments.Update(ctx, got))

	seen := 0
	require.NoError(t, r.Assignments.ForEach(ctx, func(x *domain.Assignment) error {
		if x.ID == a.ID {
			seen++
			assert.Equal(t, "Staff Engineer", x.Title)
		}
		return nil
	}))
	assert.Equal(t, 1, seen)

	_, err = r.Assignments.GetByID(ctx, owner(), a.ID)
	assert.True(t, apperrors.IsNotFound(err))

	list, err := r.Assignments.List(ctx, o, 1, 0)
	require.NoError(t, err)
	require.Len(t, list.Assignments, 1)
	assert.Equal(t, a.ID, list.Assignments[0].ID)
	assert.Equal(t, int64(1), list.TotalCount)
	assert.False(t, list.HasMore)
	list, err = r.Assignments.List(ctx, o, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, list.Assignments)
	assert.Equal(t, int64(1), list.TotalCount)
	list, err = r.Assignments.List(ctx, owner(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	require.NoError(t, r.Assignments.Delete(ctx, o, a.ID))
	all, err := r.Assignments.ListByOwner(ctx, o)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testUsers(t *testing.T, r Repos) {
	ctx := context.Background()
	email := "user-" + uuid.NewString()[:8] + "@example.com"
	u := &domain.User{ID: uuid.New(), Email: email, Name: "User", PasswordHash: "hash", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, r.Users.Create(ctx, u))

	got, err := r.Users.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	exists, err := r.Users.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *u
	dup.ID = uuid.New()
	assert.True(t, apperrors.IsConflict(r.Users.Create(ctx, &dup)))

	_, err = r.Users.GetByID(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
