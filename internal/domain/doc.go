// Package domain contains the core entities and value types for Rolodex.
//
// Organizations and people are linked two ways. Each side embeds a list of
// RelationshipEdge values pointing at the other, with the counterpart's
// display name cached on the edge. Assignments record the same kind of fact
// once, as a separate join entity with a title and a date range.
//
// Everything is scoped by an owner id. Types here are persistence-agnostic;
// the repository packages map them to documents or rows.
//
// # Naming Conventions
//
// Types ending in "Input" are used for create/update operations.
// Types ending in "Summary" are read-only projections joined onto lookups.
package domain
