package bootstrap

import (
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/config"
	"github.com/rolodex/rolodex/api/internal/pkg/storage"
	redisrepo "github.com/rolodex/rolodex/api/internal/repository/redis"
	"github.com/rolodex/rolodex/api/internal/service"
	"github.com/rolodex/rolodex/api/internal/worker"
)

// Services holds all service instances
type Services struct {
	Relationships *service.RelationshipService
	Organizations *service.OrganizationService
	People        *service.PersonService
	Assignments   *service.AssignmentService
	Exports       *service.ExportService
	Auth          *service.AuthService
}

// initServices wires the services over the repositories. Optional backends
// are attached only when open.
func initServices(cfg *config.Config, logger *zap.Logger, repos *Repositories, dbs *Databases, publisher service.EventPublisher) *Services {
	svcs := &Services{}

	svcs.Relationships = service.NewRelationshipService(
		logger,
		repos.Organizations,
		repos.People,
		repos.Assignments,
		cfg.Sync.SweepConcurrency,
	)
	svcs.Relationships.SetEventPublisher(publisher)

	svcs.Organizations = service.NewOrganizationService(logger, repos.Organizations, svcs.Relationships)
	svcs.People = service.NewPersonService(logger, repos.People, svcs.Relationships)
	svcs.Assignments = service.NewAssignmentService(logger, repos.Assignments, repos.People, repos.Organizations)
	svcs.Auth = service.NewAuthService(cfg, repos.Users)

	var snapshots service.SnapshotStore
	if dbs.Minio != nil {
		snapshots = storage.NewMinioStore(dbs.Minio, cfg.MinIO.Bucket, cfg.MinIO.PresignExpiry)
	}
	svcs.Exports = service.NewExportService(logger, repos.Organizations, repos.People, repos.Assignments, snapshots)

	if dbs.Redis != nil {
		cache := redisrepo.NewLookupCache(dbs.Redis.Client, cfg.Redis.LookupCacheTTL)
		svcs.Relationships.SetLookupCache(cache)
		svcs.Assignments.SetLookupCache(cache)
	}
	if dbs.Tasks != nil {
		enqueuer := worker.NewEnqueuer(dbs.Tasks, cfg.Worker.ResyncDelay)
		svcs.Relationships.SetResyncScheduler(enqueuer)
		svcs.Exports.SetScheduler(enqueuer)
	}

	return svcs
}
