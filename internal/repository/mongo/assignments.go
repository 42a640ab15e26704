package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// AssignmentRepository handles assignment persistence
type AssignmentRepository struct {
	coll *mongo.Collection
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{coll: db.Collection(CollectionAssignments)}
}

// parentFields returns the id and cached-name fields for a parent kind
func parentFields(kind domain.EntityKind) (idField, nameField string) {
	if kind == domain.KindPerson {
		return "person_id", "person_name"
	}
	return "organization_id", "organization_name"
}

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	if _, err := r.coll.InsertOne(ctx, toAssignmentDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("assignment already exists")
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Assignment, error) {
	var doc assignmentDoc
	err := r.coll.FindOne(ctx, ownedBy(ownerID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("assignment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return doc.assignment()
}

// Update replaces an assignment
func (r *AssignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	res, err := r.coll.ReplaceOne(ctx, ownedBy(a.OwnerID, a.ID), toAssignmentDoc(a))
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("assignment")
	}
	return nil
}

// Delete deletes an assignment
func (r *AssignmentRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("assignment")
	}
	return nil
}

func (r *AssignmentRepository) find(ctx context.Context, filter bson.M) ([]domain.Assignment, error) {
	return r.findPage(ctx, filter, 0, 0)
}

// findPage lists matching assignments oldest first. A limit <= 0 returns all.
func (r *AssignmentRepository) findPage(ctx context.Context, filter bson.M, limit, offset int) ([]domain.Assignment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	var docs []assignmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	out := make([]domain.Assignment, len(docs))
	for i, d := range docs {
		a, err := d.assignment()
		if err != nil {
			return nil, err
		}
		out[i] = *a
	}
	return out, nil
}

// ListByParent returns assignments referencing the person or organization
func (r *AssignmentRepository) ListByParent(ctx context.Context, ownerID string, parent domain.Reference) ([]domain.Assignment, error) {
	idField, _ := parentFields(parent.Kind)
	return r.find(ctx, bson.M{"owner_id": ownerID, idField: parent.ID.String()})
}

// ListByPair returns assignments linking one person to one organization
func (r *AssignmentRepository) ListByPair(ctx context.Context, ownerID string, personID, organizationID uuid.UUID) ([]domain.Assignment, error) {
	return r.find(ctx, bson.M{
		"owner_id":        ownerID,
		"person_id":       personID.String(),
		"organization_id": organizationID.String(),
	})
}

// ListByOwner returns every assignment the owner holds
func (r *AssignmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Assignment, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

// List retrieves a page of the owner's assignments, oldest first
func (r *AssignmentRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.AssignmentList, error) {
	filter := bson.M{"owner_id": ownerID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	items, err := r.findPage(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	return &domain.AssignmentList{
		Assignments: items,
		TotalCount:  total,
		HasMore:     int64(offset+len(items)) < total,
	}, nil
}

// SetCachedName rewrites the cached parent name on the owner's assignments
func (r *AssignmentRepository) SetCachedName(ctx context.Context, ownerID string, parent domain.Reference, name string) (int64, error) {
	idField, nameField := parentFields(parent.Kind)
	filter := bson.M{
		"owner_id": ownerID,
		idField:    parent.ID.String(),
		nameField:  bson.M{"$ne": name},
	}
	update := bson.M{"$set": bson.M{nameField: name, "updated_at": time.Now().UTC()}}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to rename assignments: %w", err)
	}
	return res.ModifiedCount, nil
}

// ForEach visits every assignment across all owners
func (r *AssignmentRepository) ForEach(ctx context.Context, fn func(*domain.Assignment) error) error {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to scan assignments: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc assignmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode assignment: %w", err)
		}
		a, err := doc.assignment()
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return cursor.Err()
}
