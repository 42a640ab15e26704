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

const personColumns = `id, owner_id, name, email, phone, linkedin_user_id, github_user_id, notes, organizations, version, created_at, updated_at`

// PersonRepository handles person data operations in PostgreSQL
type PersonRepository struct {
	nodeRepository
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *database.PostgresDB) *PersonRepository {
	return &PersonRepository{nodeRepository: newNodeRepository(db, domain.KindPerson)}
}

func scanPerson(row pgx.Row) (*domain.Person, error) {
	var (
		p   domain.Person
		raw []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.LinkedInUserID,
		&p.GitHubUserID,
		&p.Notes,
		&raw,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	edges, err := unmarshalEdges(raw)
	if err != nil {
		return nil, err
	}
	p.Organizations = edges
	return &p, nil
}

// Create creates a new person
func (r *PersonRepository) Create(ctx context.Context, p *domain.Person) error {
	if p.Version == 0 {
		p.Version = 1
	}
	orgs, err := marshalEdges(p.Organizations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO people (` + personColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.Name,
		p.Email,
		p.Phone,
		p.LinkedInUserID,
		p.GitHubUserID,
		p.Notes,
		orgs,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("person already exists")
		}
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// GetByID retrieves a person by ID
func (r *PersonRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE owner_id = $1 AND id = $2`

	p, err := scanPerson(r.db.Pool.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("person")
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// GetMany retrieves the people that exist among ids
func (r *PersonRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Person, error) {
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}
	query := `SELECT ` + personColumns + ` FROM people WHERE owner_id = $1 AND id = ANY($2::uuid[])`

	rows, err := r.db.Pool.Query(ctx, query, ownerID, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get people: %w", err)
	}
	return collectPeople(rows)
}

// List retrieves a page of people ordered by name
func (r *PersonRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.PersonList, error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM people WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count people: %w", err)
	}

	query := `
		SELECT ` + personColumns + `
		FROM people
		WHERE owner_id = $1
		ORDER BY lower(name), id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, ownerID, pageLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	people, err := collectPeople(rows)
	if err != nil {
		return nil, err
	}

	return &domain.PersonList{
		People:     people,
		TotalCount: total,
		HasMore:    int64(offset+len(people)) < total,
	}, nil
}

// Update writes scalar fields, and the organizations list when opts.ReplaceEdges is set
func (r *PersonRepository) Update(ctx context.Context, p *domain.Person, opts domain.UpdateOptions) error {
	orgs, err := marshalEdges(p.Organizations)
	if err != nil {
		return err
	}
	query := `
		UPDATE people
		SET name = $3, email = $4, phone = $5, linkedin_user_id = $6, github_user_id = $7, notes = $8,
			organizations = CASE WHEN $9::boolean THEN $10::jsonb ELSE organizations END,
			version = version + 1, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND ($11::bigint IS NULL OR version = $11)
		RETURNING organizations, version, updated_at
	`

	var raw []byte
	err = r.db.Pool.QueryRow(ctx, query,
		p.OwnerID,
		p.ID,
		p.Name,
		p.Email,
		p.Phone,
		p.LinkedInUserID,
		p.GitHubUserID,
		p.Notes,
		opts.ReplaceEdges,
		orgs,
		opts.ExpectedVersion,
	).Scan(&raw, &p.Version, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := r.missing(ctx, p.OwnerID, p.ID); err != nil {
			return err
		}
		return apperrors.Conflict("person was modified concurrently")
	}
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}

	p.Organizations, err = unmarshalEdges(raw)
	return err
}

// Delete deletes a person
func (r *PersonRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM people WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("person")
	}
	return nil
}

func collectPeople(rows pgx.Rows) ([]domain.Person, error) {
	defer rows.Close()

	people := []domain.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return people, nil
}
