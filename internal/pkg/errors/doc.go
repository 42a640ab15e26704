// Package errors provides application error types for the Rolodex API.
//
// # Error Types
//
//   - NotFound: Resource does not exist or belongs to another owner (404)
//   - Validation: Invalid input data (400)
//   - Unauthorized: Authentication required (401)
//   - Conflict: Stale version or duplicate key (409)
//   - PartialSyncFailure: Primary write committed, some related records were not updated (207)
//   - Internal: Unexpected server error (500)
//
// # Usage
//
//	return apperrors.NotFound("person")
//	return apperrors.Validation("title is required")
//
//	if apperrors.IsNotFound(err) {
//	    // Handle not found
//	}
package errors
