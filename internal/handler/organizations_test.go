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

func TestOrganizationsHandler_CreateMirrorsPeople(t *testing.T) {
	env := newTestEnv(t)
	person := env.createPerson(t, testutil.NewPersonInput())

	org := env.createOrganization(t, testutil.NewOrganizationInput(testutil.NewEdgeInput(person.ID, "Engineer")))

	require.Len(t, org.People, 1)
	assert.Equal(t, person.ID, org.People[0].CounterpartID)
	assert.Equal(t, person.Name, org.People[0].CounterpartName)
	assert.Equal(t, int64(1), org.Version)

	mirrored := env.getPerson(t, person.ID)
	require.Len(t, mirrored.Organizations, 1)
	assert.Equal(t, org.ID, mirrored.Organizations[0].CounterpartID)
	assert.Equal(t, org.Name, mirrored.Organizations[0].CounterpartName)
	assert.Equal(t, "Engineer", mirrored.Organizations[0].Role)
}

func TestOrganizationsHandler_Create(t *testing.T) {
	t.Run("validation errors are listed", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(t, http.MethodPost, "/v1/organizations", map[string]any{"name": "   "})

		assert.Equal(t, http.StatusBadRequest, resp.status)
		var body ErrorResponse
		resp.decode(t, &body)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
		require.NotEmpty(t, body.Errors)
		assert.Equal(t, "name", body.Errors[0].Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(t, http.MethodPost, "/v1/organizations", "not an object")
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("unknown counterpart is not found", func(t *testing.T) {
		env := newTestEnv(t)
		input := testutil.NewOrganizationInput(testutil.NewEdgeInput(uuid.New(), "Advisor"))
		resp := env.do(t, http.MethodPost, "/v1/organizations", input)
		assert.Equal(t, http.StatusNotFound, resp.status)
	})

	t.Run("failed mirror answers 207", func(t *testing.T) {
		env := newTestEnv(t)
		ok := env.createPerson(t, testutil.NewPersonInput())
		bad := env.createPerson(t, testutil.NewPersonInput())
		env.people.set(bad.ID, true)

		input := testutil.NewOrganizationInput(
			testutil.NewEdgeInput(ok.ID, "Founder"),
			testutil.NewEdgeInput(bad.ID, "Investor"),
		)
		resp := env.do(t, http.MethodPost, "/v1/organizations", input)
		require.Equal(t, http.StatusMultiStatus, resp.status, string(resp.body))

		var body struct {
			Data         domain.Organization  `json:"data"`
			SyncFailures []domain.SyncFailure `json:"syncFailures"`
		}
		resp.decode(t, &body)
		assert.Len(t, body.Data.People, 2)
		require.Len(t, body.SyncFailures, 1)
		assert.Equal(t, domain.Ref(domain.KindPerson, bad.ID), body.SyncFailures[0].Ref)
		assert.Len(t, env.getPerson(t, ok.ID).Organizations, 1)
	})
}

func TestOrganizationsHandler_OwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, testutil.NewOrganizationInput())
	path := "/v1/organizations/" + org.ID.String()

	resp := env.do(t, http.MethodGet, path, nil, "X-Test-Owner", "owner-b")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.do(t, http.MethodDelete, path, nil, "X-Test-Owner", "owner-b")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = env.do(t, http.MethodGet, "/v1/organizations", nil, "X-Test-Owner", "owner-b")
	require.Equal(t, http.StatusOK, resp.status)
	var list domain.OrganizationList
	resp.decode(t, &list)
	assert.Empty(t, list.Organizations)

	env.getOrganization(t, org.ID)
}

func TestOrganizationsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.createOrganization(t, testutil.NewOrganizationInput())
	}

	resp := env.do(t, http.MethodGet, "/v1/organizations?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var list domain.OrganizationList
	resp.decode(t, &list)
	assert.Len(t, list.Organizations, 2)
	assert.Equal(t, int64(3), list.TotalCount)
	assert.True(t, list.HasMore)
}

func TestOrganizationsHandler_UpdatePropagatesName(t *testing.T) {
	env := newTestEnv(t)
	person := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput(testutil.NewEdgeInput(person.ID, "CTO")))

	resp := env.do(t, http.MethodPatch, "/v1/organizations/"+org.ID.String(), map[string]any{"name": "Renamed Inc"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var updated domain.Organization
	resp.decode(t, &updated)
	assert.Equal(t, "Renamed Inc", updated.Name)
	assert.Equal(t, "Renamed Inc", env.getPerson(t, person.ID).Organizations[0].CounterpartName)
}

func TestOrganizationsHandler_SyncRelationships(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createPerson(t, testutil.NewPersonInput())
	bob := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput(testutil.NewEdgeInput(alice.ID, "CEO")))
	path := "/v1/organizations/" + org.ID.String() + "/relationships"

	t.Run("replaces the edge list", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, path, dto.SyncRelationshipsRequest{
			Edges: []domain.EdgeInput{testutil.NewEdgeInput(bob.ID, "CFO")},
		})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var updated domain.Organization
		resp.decode(t, &updated)
		require.Len(t, updated.People, 1)
		assert.Equal(t, bob.ID, updated.People[0].CounterpartID)
		assert.Empty(t, env.getPerson(t, alice.ID).Organizations)
		assert.Len(t, env.getPerson(t, bob.ID).Organizations, 1)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := int64(1)
		resp := env.do(t, http.MethodPut, path, dto.SyncRelationshipsRequest{
			Edges:   []domain.EdgeInput{},
			Version: &stale,
		})
		assert.Equal(t, http.StatusConflict, resp.status)
		assert.Len(t, env.getOrganization(t, org.ID).People, 1)
	})

	t.Run("edge without counterpart id is rejected", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, path, map[string]any{
			"edges": []map[string]any{{"role": "Advisor"}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := env.do(t, http.MethodPut, "/v1/organizations/not-a-uuid/relationships", dto.SyncRelationshipsRequest{})
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})
}

func TestOrganizationsHandler_Reconcile(t *testing.T) {
	env := newTestEnv(t)
	person := env.createPerson(t, testutil.NewPersonInput())
	env.people.set(person.ID, true)

	input := testutil.NewOrganizationInput(testutil.NewEdgeInput(person.ID, "Partner"))
	resp := env.do(t, http.MethodPost, "/v1/organizations", input)
	require.Equal(t, http.StatusMultiStatus, resp.status)
	var created dto.SyncResponse
	resp.decode(t, &created)
	orgID := created.Data.(map[string]any)["id"].(string)
	assert.Empty(t, env.getPerson(t, person.ID).Organizations)

	path := "/v1/organizations/" + orgID + "/relationships/reconcile"

	resp = env.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusMultiStatus, resp.status)

	env.people.set(person.ID, false)
	resp = env.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var result dto.ReconcileResponse
	resp.decode(t, &result)
	assert.Empty(t, result.SyncFailures)
	require.Len(t, env.getPerson(t, person.ID).Organizations, 1)
}

func TestOrganizationsHandler_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createPerson(t, testutil.NewPersonInput())
	bob := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput(
		testutil.NewEdgeInput(alice.ID, "CEO"),
		testutil.NewEdgeInput(bob.ID, "CTO"),
	))
	resp := env.do(t, http.MethodPost, "/v1/assignments", testutil.NewAssignmentInput(alice.ID, org.ID))
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	resp = env.do(t, http.MethodDelete, "/v1/organizations/"+org.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var body dto.DeleteResponse
	resp.decode(t, &body)
	assert.Equal(t, "Organization deleted", body.Message)
	assert.Equal(t, int64(3), body.CascadeDeleted)
	assert.Empty(t, body.Unsynced)

	assert.Empty(t, env.getPerson(t, alice.ID).Organizations)
	assert.Empty(t, env.getPerson(t, bob.ID).Organizations)
	resp = env.do(t, http.MethodGet, "/v1/people/"+alice.ID.String()+"/assignments", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var assignments dto.ListResponse[domain.AssignmentWithOrganization]
	resp.decode(t, &assignments)
	assert.Zero(t, assignments.Count)
}

func TestOrganizationsHandler_DeletePartialCascade(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createPerson(t, testutil.NewPersonInput())
	bob := env.createPerson(t, testutil.NewPersonInput())
	org := env.createOrganization(t, testutil.NewOrganizationInput(
		testutil.NewEdgeInput(alice.ID, "CEO"),
		testutil.NewEdgeInput(bob.ID, "CTO"),
	))
	env.people.set(bob.ID, true)

	resp := env.do(t, http.MethodDelete, "/v1/organizations/"+org.ID.String(), nil)
	require.Equal(t, http.StatusMultiStatus, resp.status, string(resp.body))

	var body dto.DeleteResponse
	resp.decode(t, &body)
	assert.Equal(t, int64(1), body.CascadeDeleted)
	assert.Equal(t, []string{domain.Ref(domain.KindPerson, bob.ID).String()}, body.Unsynced)

	resp = env.do(t, http.MethodGet, "/v1/organizations/"+org.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}
