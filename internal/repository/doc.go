// Package repository contains the store backends for Rolodex.
//
// Repository interfaces are declared by the consumer in the service package;
// the subpackages here implement them:
//   - mongo: document collections, one per entity kind, with embedded edges
//   - postgres: tables managed by golang-migrate, edges stored as JSONB
//   - memory: maps guarded by a mutex, used by tests and local development
//   - redis: the read-through lookup cache for assignment joins
//
// repotest holds the behavioral suite every node and assignment store must
// pass. All implementations are safe for concurrent use.
package repository
