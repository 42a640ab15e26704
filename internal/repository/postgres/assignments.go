package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/pkg/database"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

const assignmentColumns = `id, owner_id, person_id, organization_id, person_name, organization_name,
	title, start_date, end_date, current, notes, created_at, updated_at`

// AssignmentRepository handles assignment data operations in PostgreSQL
type AssignmentRepository struct {
	db *database.PostgresDB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *database.PostgresDB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// parentColumns returns the id and cached-name columns for a parent kind
func parentColumns(kind domain.EntityKind) (idColumn, nameColumn string) {
	if kind == domain.KindPerson {
		return "person_id", "person_name"
	}
	return "organization_id", "organization_name"
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var (
		a          domain.Assignment
		start, end *time.Time
	)
	if err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.PersonID,
		&a.OrganizationID,
		&a.PersonName,
		&a.OrganizationName,
		&a.Title,
		&start,
		&end,
		&a.Current,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.StartDate = domain.DateFromTime(start)
	a.EndDate = domain.DateFromTime(end)
	return &a, nil
}

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		a.ID,
		a.OwnerID,
		a.PersonID,
		a.OrganizationID,
		a.PersonName,
		a.OrganizationName,
		a.Title,
		domain.TimeOf(a.StartDate),
		domain.TimeOf(a.EndDate),
		a.Current,
		a.Notes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("assignment already exists")
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE owner_id = $1 AND id = $2`

	a, err := scanAssignment(r.db.Pool.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("assignment")
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// Update rewrites an assignment's mutable columns
func (r *AssignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET person_name = $3, organization_name = $4, title = $5, start_date = $6,
			end_date = $7, current = $8, notes = $9, updated_at = $10
		WHERE owner_id = $1 AND id = $2
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		a.OwnerID,
		a.ID,
		a.PersonName,
		a.OrganizationName,
		a.Title,
		domain.TimeOf(a.StartDate),
		domain.TimeOf(a.EndDate),
		a.Current,
		a.Notes,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("assignment")
	}
	return nil
}

// Delete deletes an assignment
func (r *AssignmentRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM assignments WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("assignment")
	}
	return nil
}

func (r *AssignmentRepository) list(ctx context.Context, where string, args ...any) ([]domain.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE `+where+` ORDER BY created_at, id`, args...)
}

func (r *AssignmentRepository) query(ctx context.Context, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	out := []domain.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return out, nil
}

// ListByParent returns assignments referencing the person or organization
func (r *AssignmentRepository) ListByParent(ctx context.Context, ownerID string, parent domain.Reference) ([]domain.Assignment, error) {
	idColumn, _ := parentColumns(parent.Kind)
	return r.list(ctx, `owner_id = $1 AND `+idColumn+` = $2`, ownerID, parent.ID)
}

// ListByPair returns assignments linking one person to one organization
func (r *AssignmentRepository) ListByPair(ctx context.Context, ownerID string, personID, organizationID uuid.UUID) ([]domain.Assignment, error) {
	return r.list(ctx, `owner_id = $1 AND person_id = $2 AND organization_id = $3`, ownerID, personID, organizationID)
}

// ListByOwner returns every assignment the owner holds
func (r *AssignmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Assignment, error) {
	return r.list(ctx, `owner_id = $1`, ownerID)
}

// List retrieves a page of the owner's assignments, oldest first
func (r *AssignmentRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.AssignmentList, error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assignments WHERE owner_id = $1`, ownerID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE owner_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`
	items, err := r.query(ctx, query, ownerID, pageLimit(limit), offset)
	if err != nil {
		return nil, err
	}

	return &domain.AssignmentList{
		Assignments: items,
		TotalCount:  total,
		HasMore:     int64(offset+len(items)) < total,
	}, nil
}

// SetCachedName rewrites the cached parent name where it differs
func (r *AssignmentRepository) SetCachedName(ctx context.Context, ownerID string, parent domain.Reference, name string) (int64, error) {
	idColumn, nameColumn := parentColumns(parent.Kind)
	query := fmt.Sprintf(`
		UPDATE assignments SET %[2]s = $3, updated_at = NOW()
		WHERE owner_id = $1 AND %[1]s = $2 AND %[2]s <> $3
	`, idColumn, nameColumn)

	tag, err := r.db.Pool.Exec(ctx, query, ownerID, parent.ID, name)
	if err != nil {
		return 0, fmt.Errorf("failed to rename assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ForEach visits every assignment across all owners in id order
func (r *AssignmentRepository) ForEach(ctx context.Context, fn func(*domain.Assignment) error) error {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id > $1 ORDER BY id LIMIT $2`

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := r.db.Pool.Query(ctx, query, after, scanBatchSize)
		if err != nil {
			return fmt.Errorf("failed to scan assignments: %w", err)
		}
		batch, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Assignment, error) {
			return scanAssignment(row)
		})
		if err != nil {
			return fmt.Errorf("failed to scan assignments: %w", err)
		}

		for _, a := range batch {
			if err := fn(a); err != nil {
				return err
			}
		}
		if len(batch) < scanBatchSize {
			return nil
		}
		after = batch[len(batch)-1].ID
	}
}
