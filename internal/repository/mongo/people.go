package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// PersonRepository handles person persistence
type PersonRepository struct {
	nodeRepository
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *mongo.Database) *PersonRepository {
	return &PersonRepository{newNodeRepository(db, domain.KindPerson)}
}

// Create creates a new person
func (r *PersonRepository) Create(ctx context.Context, person *domain.Person) error {
	if person.Version == 0 {
		person.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toPersonDoc(person)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("person already exists")
		}
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

// GetByID retrieves a person by ID
func (r *PersonRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Person, error) {
	var doc personDoc
	err := r.coll.FindOne(ctx, ownedBy(ownerID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("person")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return doc.person()
}

// GetMany retrieves the people that exist among ids
func (r *PersonRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Person, error) {
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}, "owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to get people: %w", err)
	}
	return decodePeople(ctx, cursor)
}

// List retrieves a page of people ordered by name
func (r *PersonRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.PersonList, error) {
	filter := bson.M{"owner_id": ownerID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count people: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, listOptions(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	people, err := decodePeople(ctx, cursor)
	if err != nil {
		return nil, err
	}

	return &domain.PersonList{
		People:     people,
		TotalCount: total,
		HasMore:    int64(offset+len(people)) < total,
	}, nil
}

// Update writes the scalar fields and, when requested, the organizations list
func (r *PersonRepository) Update(ctx context.Context, person *domain.Person, opts domain.UpdateOptions) error {
	filter := ownedBy(person.OwnerID, person.ID)
	if opts.ExpectedVersion != nil {
		filter["version"] = *opts.ExpectedVersion
	}
	set := bson.M{
		"name":             person.Name,
		"email":            person.Email,
		"phone":            person.Phone,
		"linkedin_user_id": person.LinkedInUserID,
		"github_user_id":   person.GitHubUserID,
		"notes":            person.Notes,
	}
	if opts.ReplaceEdges {
		set["organizations"] = toEdgeDocs(person.Organizations)
	}

	var doc personDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, touch(set),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := r.missing(ctx, person.OwnerID, person.ID); err != nil {
			return err
		}
		return apperrors.Conflict("person was modified concurrently")
	}
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}

	var ids idParser
	person.Organizations = fromEdgeDocs(&ids, doc.Organizations)
	if err := ids.check(domain.KindPerson, doc.ID); err != nil {
		return err
	}
	person.Version = doc.Version
	person.UpdatedAt = doc.UpdatedAt
	return nil
}

// Delete deletes a person
func (r *PersonRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("person")
	}
	return nil
}

func decodePeople(ctx context.Context, cursor *mongo.Cursor) ([]domain.Person, error) {
	var docs []personDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode people: %w", err)
	}
	out := make([]domain.Person, len(docs))
	for i, d := range docs {
		p, err := d.person()
		if err != nil {
			return nil, err
		}
		out[i] = *p
	}
	return out, nil
}
