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

// nodeRepository implements service.NodeRepository over one collection
type nodeRepository struct {
	coll  *mongo.Collection
	kind  domain.EntityKind
	field string
}

func newNodeRepository(db *mongo.Database, kind domain.EntityKind) nodeRepository {
	return nodeRepository{
		coll:  db.Collection(kind.Collection()),
		kind:  kind,
		field: kind.EdgeField(),
	}
}

func (r *nodeRepository) Kind() domain.EntityKind {
	return r.kind
}

func ownedBy(ownerID string, id uuid.UUID) bson.M {
	return bson.M{"_id": id.String(), "owner_id": ownerID}
}

// touch bumps the version on every write so optimistic checks see it
func touch(set bson.M) bson.M {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	return bson.M{"$set": set, "$inc": bson.M{"version": 1}}
}

func (r *nodeRepository) nodeProjection() bson.M {
	return bson.M{"owner_id": 1, "name": 1, r.field: 1, "version": 1}
}

// missing resolves a write that matched nothing: NOT_FOUND when the record is
// absent for the owner, otherwise nil so the caller reports "no change".
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

func (r *nodeRepository) GetNode(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Node, error) {
	var doc nodeDoc
	err := r.coll.FindOne(ctx, ownedBy(ownerID, id), options.FindOne().SetProjection(r.nodeProjection())).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound(string(r.kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.kind, err)
	}
	return doc.node(r.kind)
}

func (r *nodeRepository) GetNodes(ctx context.Context, ownerID string, ids []uuid.UUID) ([]domain.Node, error) {
	if len(ids) == 0 {
		return []domain.Node{}, nil
	}
	filter := bson.M{"_id": bson.M{"$in": idStrings(ids)}, "owner_id": ownerID}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetProjection(r.nodeProjection()))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.kind.Collection(), err)
	}
	var docs []nodeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.kind.Collection(), err)
	}
	out := make([]domain.Node, len(docs))
	for i, d := range docs {
		n, err := d.node(r.kind)
		if err != nil {
			return nil, err
		}
		out[i] = *n
	}
	return out, nil
}

func (r *nodeRepository) Exists(ctx context.Context, ownerID string, id uuid.UUID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, ownedBy(ownerID, id), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", r.kind, err)
	}
	return n > 0, nil
}

func (r *nodeRepository) ReplaceEdges(ctx context.Context, ownerID string, id uuid.UUID, edges []domain.RelationshipEdge, expectedVersion *int64) (*domain.Node, error) {
	filter := ownedBy(ownerID, id)
	if expectedVersion != nil {
		filter["version"] = *expectedVersion
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(r.nodeProjection())

	var doc nodeDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, touch(bson.M{r.field: toEdgeDocs(edges)}), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := r.missing(ctx, ownerID, id); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict(fmt.Sprintf("%s was modified concurrently", r.kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to replace %s edges: %w", r.kind, err)
	}
	return doc.node(r.kind)
}

func (r *nodeRepository) PushEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge) (bool, error) {
	filter := ownedBy(ownerID, id)
	filter[r.field+".counterpart_id"] = bson.M{"$ne": edge.CounterpartID.String()}

	update := touch(nil)
	update["$push"] = bson.M{r.field: toEdgeDoc(edge)}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to push %s edge: %w", r.kind, err)
	}
	if res.MatchedCount == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return true, nil
}

func (r *nodeRepository) PullEdge(ctx context.Context, ownerID string, id, counterpartID uuid.UUID) (bool, error) {
	filter := ownedBy(ownerID, id)
	filter[r.field+".counterpart_id"] = counterpartID.String()

	update := touch(nil)
	update["$pull"] = bson.M{r.field: bson.M{"counterpart_id": counterpartID.String()}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to pull %s edge: %w", r.kind, err)
	}
	if res.MatchedCount == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return res.ModifiedCount > 0, nil
}

func (r *nodeRepository) UpdateEdge(ctx context.Context, ownerID string, id uuid.UUID, edge domain.RelationshipEdge, withName bool) (bool, error) {
	filter := ownedBy(ownerID, id)
	filter[r.field+".counterpart_id"] = edge.CounterpartID.String()

	prefix := r.field + ".$."
	set := bson.M{
		prefix + "role":       edge.Role,
		prefix + "start_date": domain.TimeOf(edge.StartDate),
		prefix + "end_date":   domain.TimeOf(edge.EndDate),
	}
	if withName {
		set[prefix+"counterpart_name"] = edge.CounterpartName
	}

	res, err := r.coll.UpdateOne(ctx, filter, touch(set))
	if err != nil {
		return false, fmt.Errorf("failed to update %s edge: %w", r.kind, err)
	}
	if res.MatchedCount == 0 {
		return false, r.missing(ctx, ownerID, id)
	}
	return true, nil
}

func (r *nodeRepository) SetCachedName(ctx context.Context, ownerID string, counterpartID uuid.UUID, name string) (int64, error) {
	cid := counterpartID.String()
	filter := bson.M{
		"owner_id": ownerID,
		r.field: bson.M{"$elemMatch": bson.M{
			"counterpart_id":   cid,
			"counterpart_name": bson.M{"$ne": name},
		}},
	}
	update := touch(bson.M{r.field + ".$[e].counterpart_name": name})
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"e.counterpart_id": cid}},
	})

	res, err := r.coll.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to rename %s edges: %w", r.kind, err)
	}
	return res.ModifiedCount, nil
}

func (r *nodeRepository) ListReferencing(ctx context.Context, ownerID string, counterpartID uuid.UUID) ([]uuid.UUID, error) {
	filter := bson.M{"owner_id": ownerID, r.field + ".counterpart_id": counterpartID.String()}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list referencing %s: %w", r.kind.Collection(), err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s ids: %w", r.kind, err)
	}
	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		id, err := parseID(d.ID)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *nodeRepository) ForEachNode(ctx context.Context, fn func(*domain.Node) error) error {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(r.nodeProjection()))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", r.kind.Collection(), err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc nodeDoc
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode %s: %w", r.kind, err)
		}
		n, err := doc.node(r.kind)
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return cursor.Err()
}
