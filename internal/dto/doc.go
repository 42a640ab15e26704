// Package dto contains the HTTP request and response envelopes that wrap
// domain types.
//
// Domain inputs (domain.PersonInput, domain.OrganizationUpdateInput, ...) are
// decoded directly from request bodies and validated by the services. This
// package only holds the shapes that exist purely at the HTTP boundary:
// multi-status sync responses, cascade delete results, and the relationship
// replacement request.
//
// # Usage
//
//	var req dto.SyncRelationshipsRequest
//	if err := dto.ParseBody(c, &req); err != nil {
//	    return err
//	}
package dto
