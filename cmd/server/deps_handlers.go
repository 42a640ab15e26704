package main

import (
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/bootstrap"
	"github.com/rolodex/rolodex/api/internal/handler"
)

// Handlers holds all handler instances
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Organizations *handler.OrganizationsHandler
	People        *handler.PeopleHandler
	Assignments   *handler.AssignmentsHandler
	Exports       *handler.ExportsHandler
}

// initHandlers initializes all handlers
func initHandlers(logger *zap.Logger, rt *bootstrap.Runtime, version string) *Handlers {
	svcs := rt.Services

	var checks []handler.HealthCheck
	for _, c := range rt.Checks() {
		checks = append(checks, handler.HealthCheck{Name: c.Name, Ping: c.Ping})
	}

	return &Handlers{
		Health:        handler.NewHealthHandler(version, checks...),
		Auth:          handler.NewAuthHandler(svcs.Auth, logger),
		Organizations: handler.NewOrganizationsHandler(svcs.Organizations, svcs.Assignments, logger),
		People:        handler.NewPeopleHandler(svcs.People, svcs.Assignments, logger),
		Assignments:   handler.NewAssignmentsHandler(svcs.Assignments, logger),
		Exports:       handler.NewExportsHandler(svcs.Exports, logger),
	}
}
