package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/testutil"
)

func TestAssignmentsHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	person := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput())

	input := testutil.NewAssignmentInput(person.ID, org.ID)
	input.Title = "Staff Engineer"
	resp := env.do(t, http.MethodPost, "/v1/assignments", input)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var created domain.Assignment
	resp.decode(t, &created)
	assert.Equal(t, person.Name, created.PersonName)
	assert.Equal(t, org.Name, created.OrganizationName)
	path := "/v1/assignments/" + created.ID.String()

	t.Run("duplicate title over an overlapping range is rejected", func(t *testing.T) {
		dup := testutil.NewAssignmentInput(person.ID, org.ID)
		dup.Title = "staff engineer "
		resp := env.do(t, http.MethodPost, "/v1/assignments", dup)
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("lookup by person joins the organization", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/v1/people/"+person.ID.String()+"/assignments", nil)
		require.Equal(t, http.StatusOK, resp.status)

		var list dto.ListResponse[domain.AssignmentWithOrganization]
		resp.decode(t, &list)
		require.Equal(t, 1, list.Count)
		assert.Equal(t, org.ID, list.Data[0].Organization.ID)
		assert.Equal(t, org.Name, list.Data[0].Organization.Name)
	})

	t.Run("lookup by organization joins the person", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/v1/organizations/"+org.ID.String()+"/assignments", nil)
		require.Equal(t, http.StatusOK, resp.status)

		var list dto.ListResponse[domain.AssignmentWithPerson]
		resp.decode(t, &list)
		require.Equal(t, 1, list.Count)
		assert.Equal(t, person.ID, list.Data[0].Person.ID)
	})

	t.Run("parents cannot be changed", func(t *testing.T) {
		resp := env.do(t, http.MethodPatch, path, map[string]any{"personId": uuid.New()})
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("update title", func(t *testing.T) {
		resp := env.do(t, http.MethodPatch, path, map[string]any{"title": "Principal Engineer", "current": false})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var updated domain.Assignment
		resp.decode(t, &updated)
		assert.Equal(t, "Principal Engineer", updated.Title)
		assert.False(t, updated.Current)
	})

	t.Run("null end date reopens the range", func(t *testing.T) {
		resp := env.do(t, http.MethodPatch, path, map[string]any{"endDate": "2022-06-30", "current": false})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		resp = env.do(t, http.MethodPatch, path, map[string]any{"endDate": nil, "current": true})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var updated domain.Assignment
		resp.decode(t, &updated)
		assert.True(t, updated.Current)
		assert.Nil(t, updated.EndDate)
		assert.NotNil(t, updated.StartDate)
	})

	t.Run("other owner cannot read it", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, path, nil, "X-Test-Owner", "owner-b")
		assert.Equal(t, http.StatusNotFound, resp.status)
	})

	t.Run("delete", func(t *testing.T) {
		resp := env.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, resp.status)

		resp = env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.status)
	})
}

func TestAssignmentsHandler_CreateUnknownPerson(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, testutil.NewOrganizationInput())

	resp := env.do(t, http.MethodPost, "/v1/assignments", testutil.NewAssignmentInput(uuid.New(), org.ID))
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestAssignmentsHandler_LookupUnknownPerson(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/people/"+uuid.NewString()+"/assignments", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestAssignmentsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	person := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput())
	titles := []string{"Engineer", "Lead", "Director"}
	for _, title := range titles {
		input := testutil.NewAssignmentInput(person.ID, org.ID)
		input.Title = title
		resp := env.do(t, http.MethodPost, "/v1/assignments", input)
		require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	}

	resp := env.do(t, http.MethodGet, "/v1/assignments?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var first domain.AssignmentList
	resp.decode(t, &first)
	require.Len(t, first.Assignments, 2)
	assert.Equal(t, int64(3), first.TotalCount)
	assert.True(t, first.HasMore)

	resp = env.do(t, http.MethodGet, "/v1/assignments?limit=2&offset=2", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var rest domain.AssignmentList
	resp.decode(t, &rest)
	require.Len(t, rest.Assignments, 1)
	assert.False(t, rest.HasMore)

	seen := map[string]bool{}
	for _, a := range append(first.Assignments, rest.Assignments...) {
		seen[a.Title] = true
	}
	assert.Len(t, seen, len(titles))

	resp = env.do(t, http.MethodGet, "/v1/assignments", nil, "X-Test-Owner", "owner-b")
	require.Equal(t, http.StatusOK, resp.status)
	var other domain.AssignmentList
	resp.decode(t, &other)
	assert.Empty(t, other.Assignments)
	assert.Zero(t, other.TotalCount)
}
