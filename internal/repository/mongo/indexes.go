package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Indexes lists the indexes each collection needs. Edge lookups by
// counterpart id back ListReferencing and the cached-name rewrites.
func Indexes() map[string][]mongo.IndexModel {
	byOwnerName := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetCollation(nameCollation),
	}
	return map[string][]mongo.IndexModel{
		CollectionOrganizations: {
			byOwnerName,
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "people.counterpart_id", Value: 1}}},
		},
		CollectionPeople: {
			byOwnerName,
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "organizations.counterpart_id", Value: 1}}},
		},
		CollectionAssignments: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "person_id", Value: 1}, {Key: "organization_id", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "organization_id", Value: 1}}},
		},
		CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates any missing indexes. It is safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range Indexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
