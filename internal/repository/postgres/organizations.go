package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/pkg/database"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

const organizationColumns = `id, owner_id, name, industry, website, people, version, created_at, updated_at`

// OrganizationRepository handles organization data operations in PostgreSQL
type OrganizationRepository struct {
	nodeRepository
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *database.PostgresDB) *OrganizationRepository {
	return &OrganizationRepository{nodeRepository: newNodeRepository(db, domain.KindOrganization)}
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var (
		org domain.Organization
		raw []byte
	)
	if err := row.Scan(
		&org.ID,
		&org.OwnerID,
		&org.Name,
		&org.Industry,
		&org.Website,
		&raw,
		&org.Version,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	edges, err := unmarshalEdges(raw)
	if err != nil {
		return nil, err
	}
	org.People = edges
	return &org, nil
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.Version == 0 {
		org.Version = 1
	}
	people, err := marshalEdges(org.People)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		org.ID,
		org.OwnerID,
		org.Name,
		org.Industry,
		org.Website,
		people,
		org.Version,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("organization already exists")
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE owner_id = $1 AND id = $2`

	org, err := scanOrganization(r.db.Pool.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("organization")
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetMany retrieves the organizations that exist among ids
func (r *OrganizationRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return []domain.Organization{}, nil
	}
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE owner_id = $1 AND id = ANY($2::uuid[])`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get organizations: %w", err)
	}
	return collectOrganizations(rows)
}

// List retrieves a page of organizations ordered by name
func (r *OrganizationRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.OrganizationList, error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM organizations WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count organizations: %w", err)
	}

	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		WHERE owner_id = $1
		ORDER BY lower(name), id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, ownerID, pageLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	orgs, err := collectOrganizations(rows)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationList{
		Organizations: orgs,
		TotalCount:    total,
		HasMore:       int64(offset+len(orgs)) < total,
	}, nil
}

// Update writes scalar fields, and the people list when opts.ReplaceEdges is set
func (r *OrganizationRepository) Update(ctx context.Context, org *domain.Organization, opts domain.UpdateOptions) error {
	people, err := marshalEdges(org.People)
	if err != nil {
		return err
	}
	query := `
		UPDATE organizations
		SET name = $3, industry = $4, website = $5,
			people = CASE WHEN $6::boolean THEN $7::jsonb ELSE people END,
			version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND ($8::bigint IS NULL OR version = $8)
		RETURNING people, version, updated_at
	`

	var raw []byte
	err = r.db.Pool.QueryRow(ctx, query,
		org.OwnerID,
		org.ID,
		org.Name,
		org.Industry,
		org.Website,
		opts.ReplaceEdges,
		people,
		opts.ExpectedVersion,
	).Scan(&raw, &org.Version, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := r.missing(ctx, org.OwnerID, org.ID); err != nil {
			return err
		}
		return apperrors.Conflict("organization was modified concurrently")
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	org.People, err = unmarshalEdges(raw)
	return err
}

// Delete deletes an organization
func (r *OrganizationRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM organizations WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("organization")
	}
	return nil
}

func collectOrganizations(rows pgx.Rows) ([]domain.Organization, error) {
	defer rows.Close()

	orgs := []domain.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return orgs, nil
}

// pageLimit maps a non-positive limit to NULL, which Postgres treats as LIMIT ALL
func pageLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
