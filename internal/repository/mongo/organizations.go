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

// nameCollation orders lists by name case-insensitively
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

func listOptions(limit, offset int) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(nameCollation).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// OrganizationRepository handles organization persistence
type OrganizationRepository struct {
	nodeRepository
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *mongo.Database) *OrganizationRepository {
	return &OrganizationRepository{newNodeRepository(db, domain.KindOrganization)}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	if org.Version == 0 {
		org.Version = 1
	}
	if _, err := r.coll.InsertOne(ctx, toOrganizationDoc(org)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("organization already exists")
		}
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Organization, error) {
	var doc organizationDoc
	err := r.coll.FindOne(ctx, ownedBy(ownerID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("organization")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return doc.organization()
}

// GetMany retrieves the organizations that exist among ids
func (r *OrganizationRepository) GetMany(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Organization, error) {
	if len(ids) == 0 {
		return []domain.Organization{}, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}, "owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to get organizations: %w", err)
	}
	return decodeOrganizations(ctx, cursor)
}

// List retrieves a page of organizations ordered by name
func (r *OrganizationRepository) List(ctx context.Context, ownerID string, limit, offset int) (*domain.OrganizationList, error) {
	filter := bson.M{"owner_id": ownerID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count organizations: %w", err)
	}

	cursor, err := r.coll.Find(ctx, filter, listOptions(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	orgs, err := decodeOrganizations(ctx, cursor)
	if err != nil {
		return nil, err
	}

	return &domain.OrganizationList{
		Organizations: orgs,
		TotalCount:    total,
		HasMore:       int64(offset+len(orgs)) < total,
	}, nil
}

// Update writes the scalar fields and, when requested, the people list
func (r *OrganizationRepository) Update(ctx context.Context, org *domain.Organization, opts domain.UpdateOptions) error {
	filter := ownedBy(org.OwnerID, org.ID)
	if opts.ExpectedVersion != nil {
		filter["version"] = *opts.ExpectedVersion
	}
	set := bson.M{
		"name":     org.Name,
		"industry": org.Industry,
		"website":  org.Website,
	}
	if opts.ReplaceEdges {
		set["people"] = toEdgeDocs(org.People)
	}

	var doc organizationDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, touch(set),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := r.missing(ctx, org.OwnerID, org.ID); err != nil {
			return err
		}
		return apperrors.Conflict("organization was modified concurrently")
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	var ids idParser
	org.People = fromEdgeDocs(&ids, doc.People)
	if err := ids.check(domain.KindOrganization, doc.ID); err != nil {
		return err
	}
	org.Version = doc.Version
	org.UpdatedAt = doc.UpdatedAt
	return nil
}

// Delete deletes an organization
func (r *OrganizationRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("organization")
	}
	return nil
}

func decodeOrganizations(ctx context.Context, cursor *mongo.Cursor) ([]domain.Organization, error) {
	var docs []organizationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode organizations: %w", err)
	}
	out := make([]domain.Organization, len(docs))
	for i, d := range docs {
		o, err := d.organization()
		if err != nil {
			return nil, err
		}
		out[i] = *o
	}
	return out, nil
}
