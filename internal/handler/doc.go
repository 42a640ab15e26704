// Package handler contains HTTP request handlers for Rolodex.
//
// Handlers parse the request, take the owner id from the authenticated
// context, call a service and map the result to a response.
//
// # Route Organization
//
// Routes are organized by resource:
//   - /v1/auth/register, /v1/auth/login - no auth required
//   - /v1/organizations, /v1/people, /v1/assignments, /v1/exports - JWT authentication
//   - /health, /livez, /readyz, /version - probes
//
// # Partial Success
//
// When the primary record was written but some counterpart mirrors were
// not, handlers answer 207 Multi-Status with the record under "data" and the
// failed operations under "syncFailures". A cascade delete that leaves
// references behind answers 207 with their refs under "unsynced".
//
// # Error Handling
//
// Handlers convert service errors to HTTP status codes using the apperrors
// package. Errors that are not application errors are logged, reported to
// Sentry and answered with a generic 500.
package handler
