package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/middleware"
	"github.com/rolodex/rolodex/api/internal/repository/memory"
	"github.com/rolodex/rolodex/api/internal/service"
	"github.com/rolodex/rolodex/api/internal/testutil"
)

const testOwner = "owner-a"

var errMirrorWrite = errors.New("mirror write failed")

// brokenNodes fails every edge write aimed at the listed records
type brokenNodes struct {
	service.NodeRepository
	mu     sync.Mutex
	broken map[uuid.UUID]bool
}

func (b *brokenNodes) set(id uuid.UUID, broken bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken[id] = broken
}

func (b *brokenNodes) isBroken(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken[id]
}

func (b *brokenNodes) PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error) {
	if b.isBroken(id) {
		return false, errMirrorWrite
	}
	return b.NodeRepository.PushEdge(ctx, ownerID, id, edge)
}

func (b *brokenNodes) PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error) {
	if b.isBroken(id) {
		return false, errMirrorWrite
	}
	return b.NodeRepository.PullEdge(ctx, ownerID, id, counterpartID)
}

func (b *brokenNodes) UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error) {
	if b.isBroken(id) {
		return false, errMirrorWrite
	}
	return b.NodeRepository.UpdateEdge(ctx, ownerID, id, edge, withName)
}

// memorySnapshots is an in-process SnapshotStore
type memorySnapshots struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memorySnapshots) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memorySnapshots) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memorySnapshots) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	return "https://snapshots.test/" + key, time.Now().Add(time.Hour), nil
}

type testEnv struct {
	app       *fiber.App
	orgNodes  *brokenNodes
	people    *brokenNodes
	snapshots *memorySnapshots
	auth      *service.AuthService
}

// newTestEnv wires every handler over the in-memory repositories. Resource
// routes take the owner from the X-Test-Owner header; /auth/me goes through
// the JWT middleware.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store := memory.NewStore()
	orgRepo := memory.NewOrganizationRepository(store)
	personRepo := memory.NewPersonRepository(store)
	assignmentRepo := memory.NewAssignmentRepository(store)
	userRepo := memory.NewUserRepository(store)

	env := &testEnv{
		orgNodes:  &brokenNodes{NodeRepository: orgRepo, broken: map[uuid.UUID]bool{}},
		people:    &brokenNodes{NodeRepository: personRepo, broken: map[uuid.UUID]bool{}},
		snapshots: &memorySnapshots{objects: map[string][]byte{}},
	}

	relationships := service.NewRelationshipService(logger, env.orgNodes, env.people, assignmentRepo, 4)
	orgService := service.NewOrganizationService(logger, orgRepo, relationships)
	personService := service.NewPersonService(logger, personRepo, relationships)
	assignmentService := service.NewAssignmentService(logger, assignmentRepo, personRepo, orgRepo)
	exportService := service.NewExportService(logger, orgRepo, personRepo, assignmentRepo, env.snapshots)
	env.auth = service.NewAuthService(&config.Config{
		JWT: config.JWTConfig{Secret: "handler-test-secret", AccessExpiry: 60, Issuer: "rolodex-test"},
	}, userRepo)

	app := fiber.New()
	v1 := app.Group("/v1", testutil.TestOwnerHeaderMiddleware(testOwner))
	NewOrganizationsHandler(orgService, assignmentService, logger).RegisterRoutes(v1)
	NewPeopleHandler(personService, assignmentService, logger).RegisterRoutes(v1)
	NewAssignmentsHandler(assignmentService, logger).RegisterRoutes(v1)
	NewExportsHandler(exportService, logger).RegisterRoutes(v1)

	// Registered last so the JWT middleware only sees requests no resource
	// route answered.
	authHandler := NewAuthHandler(env.auth, logger)
	authHandler.RegisterPublicRoutes(app.Group("/v1"))
	authHandler.RegisterRoutes(app.Group("/v1", middleware.NewAuthMiddleware(env.auth).RequireJWT()))

	env.app = app
	return env
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: raw}
}

func (e *testEnv) createOrganization(t *testing.T, input *domain.OrganizationInput) *domain.Organization {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/organizations", input)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var org domain.Organization
	resp.decode(t, &org)
	return &org
}

func (e *testEnv) createPerson(t *testing.T, input *domain.PersonInput) *domain.Person {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/people", input)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var person domain.Person
	resp.decode(t, &person)
	return &person
}

func (e *testEnv) getPerson(t *testing.T, id uuid.UUID) *domain.Person {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/v1/people/"+id.String(), nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var person domain.Person
	resp.decode(t, &person)
	return &person
}

func (e *testEnv) getOrganization(t *testing.T, id uuid.UUID) *domain.Organization {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/v1/organizations/"+id.String(), nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var org domain.Organization
	resp.decode(t, &org)
	return &org
}
