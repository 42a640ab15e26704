package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/repository/memory"
)

var errWriteFailed = errors.New("write failed")

// faultyNodes fails every write aimed at the listed records
type faultyNodes struct {
	NodeRepository
	mu   sync.Mutex
	fail map[uuid.UUID]bool
}

func newFaultyNodes(repo NodeRepository) *faultyNodes {
	return &faultyNodes{NodeRepository: repo, fail: map[uuid.UUID]bool{}}
}

func (f *faultyNodes) breakRecord(id uuid.UUID, broken bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[id] = broken
}

func (f *faultyNodes) broken(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[id]
}

func (f *faultyNodes) PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error) {
	if f.broken(id) {
		return false, errWriteFailed
	}
	return f.NodeRepository.PushEdge(ctx, ownerID, id, edge)
}

func (f *faultyNodes) PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error) {
	if f.broken(id) {
		return false, errWriteFailed
	}
	return f.NodeRepository.PullEdge(ctx, ownerID, id, counterpartID)
}

func (f *faultyNodes) UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error) {
	if f.broken(id) {
		return false, errWriteFailed
	}
	return f.NodeRepository.UpdateEdge(ctx, ownerID, id, edge, withName)
}

// racingOrganizations runs race once, right after the primary record is loaded
type racingOrganizations struct {
	OrganizationRepository
	once sync.Once
	race func()
}

func (r *racingOrganizations) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error) {
	org, err := r.OrganizationRepository.GetByID(ctx, ownerID, id)
	r.once.Do(r.race)
	return org, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RelationshipEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...domain.RelationshipEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.RelationshipEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.RelationshipEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingResync struct {
	mu   sync.Mutex
	refs []domain.Reference
}

func (r *recordingResync) ScheduleResync(ctx context.Context, ownerID string, ref domain.Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, ref)
	return nil
}

// mapCache is a LookupCache kept in process memory
type mapCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	hits          int
	invalidations int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, ownerID, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[ownerID+"|"+key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, ownerID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ownerID+"|"+key] = data
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	for k := range c.entries {
		if len(k) > len(ownerID) && k[:len(ownerID)+1] == ownerID+"|" {
			delete(c.entries, k)
		}
	}
	return nil
}

const testOwner = "owner-1"

// fixture wires every relationship-aware service over one memory store.
// The people and organization node views pass through faultyNodes so tests
// can make individual counterpart writes fail.
type fixture struct {
	orgRepo      *memory.OrganizationRepository
	personRepo   *memory.PersonRepository
	assignRepo   *memory.AssignmentRepository
	faultyOrgs   *faultyNodes
	faultyPeople *faultyNodes

	relationships *RelationshipService
	orgs          *OrganizationService
	people        *PersonService
	assignments   *AssignmentService

	events *recordingPublisher
	resync *recordingResync
	cache  *mapCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()

	f := &fixture{
		orgRepo:    memory.NewOrganizationRepository(store),
		personRepo: memory.NewPersonRepository(store),
		assignRepo: memory.NewAssignmentRepository(store),
		events:     &recordingPublisher{},
		resync:     &recordingResync{},
		cache:      newMapCache(),
	}
	f.faultyOrgs = newFaultyNodes(f.orgRepo)
	f.faultyPeople = newFaultyNodes(f.personRepo)

	f.relationships = NewRelationshipService(logger, f.faultyOrgs, f.faultyPeople, f.assignRepo, 4)
	f.relationships.SetEventPublisher(f.events)
	f.relationships.SetResyncScheduler(f.resync)
	f.relationships.SetLookupCache(f.cache)

	f.orgs = NewOrganizationService(logger, f.orgRepo, f.relationships)
	f.people = NewPersonService(logger, f.personRepo, f.relationships)
	f.assignments = NewAssignmentService(logger, f.assignRepo, f.personRepo, f.orgRepo)
	f.assignments.SetLookupCache(f.cache)
	return f
}

func (f *fixture) createPerson(t *testing.T, name string) *domain.Person {
	t.Helper()
	p, failures, err := f.people.Create(context.Background(), testOwner, &domain.PersonInput{Name: name})
	if err != nil || len(failures) > 0 {
		t.Fatalf("create person %q: %v %v", name, err, failures)
	}
	return p
}

func (f *fixture) createOrg(t *testing.T, name string, people ...domain.EdgeInput) *domain.Organization {
	t.Helper()
	org, failures, err := f.orgs.Create(context.Background(), testOwner, &domain.OrganizationInput{Name: name, People: people})
	if err != nil || len(failures) > 0 {
		t.Fatalf("create organization %q: %v %v", name, err, failures)
	}
	return org
}

func (f *fixture) person(t *testing.T, id uuid.UUID) *domain.Person {
	t.Helper()
	p, err := f.personRepo.GetByID(context.Background(), testOwner, id)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	return p
}

func (f *fixture) org(t *testing.T, id uuid.UUID) *domain.Organization {
	t.Helper()
	o, err := f.orgRepo.GetByID(context.Background(), testOwner, id)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	return o
}

func edgeTo(id uuid.UUID, role string) domain.EdgeInput {
	return domain.EdgeInput{CounterpartID: id, Role: role}
}

func datePtr(y int, m int, d int) *domain.Date {
	return domain.DatePtr(domain.NewDate(y, time.Month(m), d))
}

func strPtr(s string) *string {
	return &s
}
