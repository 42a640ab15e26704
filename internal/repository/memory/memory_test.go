package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/repository/repotest"
)

func newRepos(t *testing.T) repotest.Repos {
	store := NewStore()
	return repotest.Repos{
		Organizations: NewOrganizationRepository(store),
		People:        NewPersonRepository(store),
		Assignments:   NewAssignmentRepository(store),
		Users:         NewUserRepository(store),
	}
}

func TestRepositories(t *testing.T) {
	repotest.Run(t, newRepos)
}

func TestGetNode_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationRepository(NewStore())
	org := repotest.NewOrganization("o", "Acme", domain.RelationshipEdge{CounterpartID: uuid.New(), Role: "CEO"})
	require.NoError(t, repo.Create(ctx, org))

	node, err := repo.GetNode(ctx, "o", org.ID)
	require.NoError(t, err)
	node.Edges[0].Role = "mutated"

	again, err := repo.GetNode(ctx, "o", org.ID)
	require.NoError(t, err)
	assert.Equal(t, "CEO", again.Edges[0].Role)
}

func TestPushEdge_ConcurrentSameCounterpart(t *testing.T) {
	ctx := context.Background()
	repo := NewPersonRepository(NewStore())
	p := repotest.NewPerson("o", "Ada")
	require.NoError(t, repo.Create(ctx, p))

	orgID := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.PushEdge(ctx, "o", p.ID, domain.RelationshipEdge{CounterpartID: orgID})
		}()
	}
	wg.Wait()

	node, err := repo.GetNode(ctx, "o", p.ID)
	require.NoError(t, err)
	assert.Len(t, node.Edges, 1)
}

func TestForEachNode_AllOwners(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewOrganizationRepository(store)
	require.NoError(t, repo.Create(ctx, repotest.NewOrganization("a", "One")))
	require.NoError(t, repo.Create(ctx, repotest.NewOrganization("b", "Two")))

	owners := map[string]bool{}
	require.NoError(t, repo.ForEachNode(ctx, func(n *domain.Node) error {
		// The store lock is released before the callback runs.
		_, err := repo.Exists(ctx, n.OwnerID, n.Ref.ID)
		owners[n.OwnerID] = true
		return err
	}))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, owners)
}
