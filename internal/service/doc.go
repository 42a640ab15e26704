// Package service contains the business logic layer for Rolodex.
//
// Services coordinate between handlers and repositories. They depend on the
// repository interfaces declared in this package, so any of the store
// backends (MongoDB, PostgreSQL or in-memory) can be plugged in.
//
// RelationshipService is the consistency engine. The organization and person
// services write their primary record and then hand the edge diff to it; the
// assignment service enforces the rules of the normalized model.
//
// All services are safe for concurrent use from multiple goroutines.
package service
