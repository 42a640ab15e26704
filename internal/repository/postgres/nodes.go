// Package postgres stores organizations, people and assignments in
// PostgreSQL. Relationship edges live in a JSONB array column on each row and
// every edge operation is a single-row UPDATE, so mirror writes stay atomic
// per record just like the document store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/pkg/database"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// scanBatchSize bounds the rows held in memory by ForEachNode
const scanBatchSize = 500

// nodeRepository implements the relationship view shared by the
// organizations and people tables.
type nodeRepository struct {
	db    *database.PostgresDB
	kind  domain.EntityKind
	table string
	field string
}

func newNodeRepository(db *database.PostgresDB, kind domain.EntityKind) nodeRepository {
	return nodeRepository{db: db, kind: kind, table: kind.Collection(), field: kind.EdgeField()}
}

// Kind returns the entity kind stored by this repository
func (r *nodeRepository) Kind() domain.EntityKind {
	return r.kind
}

// q substitutes the table (%[1]s) and edge column (%[2]s) into a query
func (r *nodeRepository) q(query string) string {
	return fmt.Sprintf(query, r.table, r.field)
}

// containsEdge is a JSONB containment predicate matching an edge by counterpart
const containsEdge = `%[2]s @> jsonb_build_array(jsonb_build_object('counterpartId', $%[3]d::text))`

func (r *nodeRepository) hasEdge(param int) string {
	return fmt.Sprintf(containsEdge, r.table, r.field, param)
}

func marshalEdges(edges []domain.RelationshipEdge) (string, error) {
	if edges == nil {
		edges = []domain.RelationshipEdge{}
	}
	b, err := json.Marshal(edges)
	if err != nil {
		return "", fmt.Errorf("failed to encode edges: %w", err)
	}
	return string(b), nil
}

func unmarshalEdges(raw []byte) ([]domain.RelationshipEdge, error) {
	edges := []domain.RelationshipEdge{}
	if len(raw) == 0 {
		return edges, nil
	}
	if err := json.Unmarshal(raw, &edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges: %w", err)
	}
	return edges, nil
}

// edgePatch is merged over a stored edge by UpdateEdge. Role and dates are
// always replaced; the cached name only when withName is set.
func edgePatch(edge domain.RelationshipEdge, withName bool) (string, error) {
	patch := map[string]any{"role": edge.Role}
	if edge.StartDate != nil {
		patch["startDate"] = edge.StartDate
	}
	if edge.EndDate != nil {
		patch["endDate"] = edge.EndDate
	}
	if withName {
		patch["counterpartName"] = edge.CounterpartName
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("failed to encode edge: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *nodeRepository) scanNode(row pgx.Row) (*domain.Node, error) {
	var (
		n   domain.Node
		id  uuid.UUID
		raw []byte
	)
	if err := row.Scan(&id, &n.OwnerID, &n.Name, &raw, &n.Version); err != nil {
		return nil, err
	}
	edges, err := unmarshalEdges(raw)
	if err != nil {
		return nil, err
	}
	n.Ref = domain.Ref(r.kind, id)
	n.Edges = edges
	return &n, nil
}

// missing returns NotFound when the record is absent for the owner, nil otherwise
func (r *nodeRepository) missing(ctx context.Context, ownerID string, id uuid.UUID) error {
	ok, err := r.Exists(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound(string(r.kind))
	}
	return nil
}

// GetNode loads a record's relationship view
func (r *nodeRepository) GetNode(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Node, error) {
	query := r.q(`SELECT id, owner_id, name, %[2]s, version FROM %[1]s WHERE owner_id = $1 AND id = $2`)

	n, err := r.scanNode(r.db.Pool.QueryRow(ctx, query, ownerID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(string(r.kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.kind, err)
	}
	return n, nil
}

// GetNodes loads the records that exist among ids
func (r *nodeRepository) GetNodes(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Node, error) {
	if len(ids) == 0 {
		return []domain.Node{}, nil
	}
	query := r.q(`SELECT id, owner_id, name, %[2]s, version FROM %[1]s WHERE owner_id = $1 AND id = ANY($2::uuid[])`)

	rows, err := r.db.Pool.Query(ctx, query, ownerID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s records: %w", r.kind, err)
	}
	defer rows.Close()

	nodes := make([]domain.Node, 0, len(ids))
	for rows.Next() {
		n, err := r.scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.kind, err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// Exists reports whether the record exists for the owner
func (r *nodeRepository) Exists(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx,
		r.q(`SELECT EXISTS (SELECT 1 FROM %[1]s WHERE owner_id = $1 AND id = $2)`),
		ownerID, id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", r.kind, err)
	}
	return ok, nil
}

// ReplaceEdges overwrites the edge column, optionally guarded by version
func (r *nodeRepository) ReplaceEdges(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.RelationshipEdge, expectedVersion *int64) (*domain.Node, error) {
	encoded, err := marshalEdges(edges)
	if err != nil {
		return nil, err
	}
	query := r.q(`
		UPDATE %[1]s
		SET %[2]s = $3::jsonb, version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND ($4::bigint IS NULL OR version = $4)
		RETURNING id, owner_id, name, %[2]s, version
	`)

	n, err := r.scanNode(r.db.Pool.QueryRow(ctx, query, ownerID, id, encoded, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		if err := r.missing(ctx, ownerID, id); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict(fmt.Sprintf("%s was modified concurrently", r.kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to replace %s edges: %w", r.kind, err)
	}
	return n, nil
}

// PushEdge appends edge unless one with the same counterpart is present.
// The containment check is re-evaluated under the row lock, so concurrent
// pushes of one counterpart leave a single edge.
func (r *nodeRepository) PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error) {
	b, err := json.Marshal(edge)
	if err != nil {
		return false, fmt.Errorf("failed to encode edge: %w", err)
	}
	query := r.q(`
		UPDATE %[1]s
		SET %[2]s = %[2]s || jsonb_build_array($3::jsonb), version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND NOT ` + r.hasEdge(4))

	tag, err := r.db.Pool.Exec(ctx, query, ownerID, id, string(b), edge.CounterpartID.String())
	if err != nil {
		return false, fmt.Errorf("failed to push %s edge: %w", r.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return true, nil
}

// PullEdge removes the edge pointing at counterpartID
func (r *nodeRepository) PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error) {
	query := r.q(`
		UPDATE %[1]s
		SET %[2]s = COALESCE((
				SELECT jsonb_agg(e ORDER BY i)
				FROM jsonb_array_elements(%[2]s) WITH ORDINALITY AS x(e, i)
				WHERE e->>'counterpartId' <> $3::text
			), '[]'::jsonb),
			version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND ` + r.hasEdge(3))

	tag, err := r.db.Pool.Exec(ctx, query, ownerID, id, counterpartID.String())
	if err != nil {
		return false, fmt.Errorf("failed to pull %s edge: %w", r.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return true, nil
}

// UpdateEdge rewrites the role and dates of the edge matched by counterpart
func (r *nodeRepository) UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error) {
	patch, err := edgePatch(edge, withName)
	if err != nil {
		return false, err
	}
	query := r.q(`
		UPDATE %[1]s
		SET %[2]s = (
				SELECT jsonb_agg(CASE
					WHEN e->>'counterpartId' = $3::text THEN (e - 'role' - 'startDate' - 'endDate') || $4::jsonb
					ELSE e END ORDER BY i)
				FROM jsonb_array_elements(%[2]s) WITH ORDINALITY AS x(e, i)
			),
			version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND ` + r.hasEdge(3))

	tag, err := r.db.Pool.Exec(ctx, query, ownerID, id, edge.CounterpartID.String(), patch)
	if err != nil {
		return false, fmt.Errorf("failed to update %s edge: %w", r.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return true, nil
}

// SetCachedName rewrites the cached name on edges pointing at counterpartID.
// Rows already carrying the name are left alone.
func (r *nodeRepository) SetCachedName(ctx context.Context, ownerID string, counterpartID uuid.UUID, name string) (int64, error) {
	query := r.q(`
		UPDATE %[1]s
		SET %[2]s = (
				SELECT jsonb_agg(CASE
					WHEN e->>'counterpartId' = $2::text THEN jsonb_set(e, '{counterpartName}', to_jsonb($3::text))
					ELSE e END ORDER BY i)
				FROM jsonb_array_elements(%[2]s) WITH ORDINALITY AS x(e, i)
			),
			version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND ` + r.hasEdge(2) + r.q(`
		  AND NOT %[2]s @> jsonb_build_array(jsonb_build_object('counterpartId', $2::text, 'counterpartName', $3::text))`))

	tag, err := r.db.Pool.Exec(ctx, query, ownerID, counterpartID.String(), name)
	if err != nil {
		return 0, fmt.Errorf("failed to rename %s edges: %w", r.kind, err)
	}
	return tag.RowsAffected(), nil
}

// ListReferencing returns the ids of records holding an edge to counterpartID
func (r *nodeRepository) ListReferencing(ctx context.Context, ownerID string, counterpartID uuid.UUID) ([]uuid.UUID, error) {
	query := r.q(`SELECT id FROM %[1]s WHERE owner_id = $1 AND `+r.hasEdge(2)) + ` ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, counterpartID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s references: %w", r.kind, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s references: %w", r.kind, err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// ForEachNode visits every record across all owners in id order. Rows are
// read in batches so fn may write through the same pool.
func (r *nodeRepository) ForEachNode(ctx context.Context, fn func(*domain.Node) error) error {
	query := r.q(`SELECT id, owner_id, name, %[2]s, version FROM %[1]s WHERE id > $1 ORDER BY id LIMIT $2`)

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := r.db.Pool.Query(ctx, query, after, scanBatchSize)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", r.kind, err)
		}
		var batch []*domain.Node
		for rows.Next() {
			n, err := r.scanNode(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s: %w", r.kind, err)
			}
			batch = append(batch, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to scan %s: %w", r.kind, err)
		}

		for _, n := range batch {
			if err := fn(n); err != nil {
				return err
			}
		}
		if len(batch) < scanBatchSize {
			return nil
		}
		after = batch[len(batch)-1].Ref.ID
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
