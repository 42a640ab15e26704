package bootstrap

import (
	"fmt"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/repository/memory"
	mongorepo "github.com/rolodex/rolodex/api/internal/repository/mongo"
	pgrepo "github.com/rolodex/rolodex/api/internal/repository/postgres"
	"github.com/rolodex/rolodex/api/internal/service"
)

// Repositories holds the repositories of the configured store driver
type Repositories struct {
	Organizations service.OrganizationRepository
	People        service.PersonRepository
	Assignments   service.AssignmentRepository
	Users         service.UserRepository
}

// initRepositories builds the repositories over the open store
func initRepositories(cfg *config.Config, dbs *Databases) (*Repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		db := dbs.Mongo.DB
		return &Repositories{
			Organizations: mongorepo.NewOrganizationRepository(db),
			People:        mongorepo.NewPersonRepository(db),
			Assignments:   mongorepo.NewAssignmentRepository(db),
			Users:         mongorepo.NewUserRepository(db),
		}, nil
	case config.StorePostgres:
		return &Repositories{
			Organizations: pgrepo.NewOrganizationRepository(dbs.Postgres),
			People:        pgrepo.NewPersonRepository(dbs.Postgres),
			Assignments:   pgrepo.NewAssignmentRepository(dbs.Postgres),
			Users:         pgrepo.NewUserRepository(dbs.Postgres),
		}, nil
	case config.StoreMemory:
		store := memory.NewStore()
		return &Repositories{
			Organizations: memory.NewOrganizationRepository(store),
			People:        memory.NewPersonRepository(store),
			Assignments:   memory.NewAssignmentRepository(store),
			Users:         memory.NewUserRepository(store),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
