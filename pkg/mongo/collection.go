package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/storefront/pkg/isolation"
)

// storedDocument is the on-disk shape of a record. Data holds the record's
// JSON form so field names match the other backends.
type storedDocument struct {
	ID       string `bson:"_id"`
	TenantID string `bson:"tenant_id"`
	Data     bson.D `bson:"data"`
}

// Collection is an isolation.Store over one MongoDB collection. Every query
// and write carries tenant_id in its filter.
type Collection[T isolation.Record] struct {
	coll *mongo.Collection
}

func NewCollection[T isolation.Record](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name)}
}

// EnsureIndexes creates the tenant index used by every list query.
func (c *Collection[T]) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: isolation.TenantField, Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("tenant_id_1__id_1"),
	})
	return err
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var (
		zero T
		doc  storedDocument
	)
	err := c.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return zero, isolation.ErrNotFound
	case err != nil:
		return zero, fmt.Errorf("mongo: get %s: %w", id, err)
	}
	return decodeRecord[T](doc)
}

func (c *Collection[T]) Find(ctx context.Context, scope isolation.Scope, f isolation.Filter) ([]T, error) {
	filter, err := buildFilter(scope, f.Where)
	if err != nil {
		return nil, err
	}
	opts, err := buildFindOptions(f)
	if err != nil {
		return nil, err
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	defer cur.Close(ctx)

	var out []T
	for cur.Next(ctx) {
		var doc storedDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}
		rec, err := decodeRecord[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, cur.Err()
}

func (c *Collection[T]) Insert(ctx context.Context, scope isolation.Scope, rec T) error {
	doc, err := encodeRecord(scope, rec)
	if err != nil {
		return err
	}
	_, err = c.coll.InsertOne(ctx, doc)
	switch {
	case mongo.IsDuplicateKeyError(err):
		return isolation.ErrConflict
	case err != nil:
		return fmt.Errorf("mongo: insert %s: %w", rec.GetID(), err)
	}
	return nil
}

func (c *Collection[T]) Update(ctx context.Context, scope isolation.Scope, rec T) error {
	doc, err := encodeRecord(scope, rec)
	if err != nil {
		return err
	}
	res, err := c.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID}, {Key: isolation.TenantField, Value: scope.TenantID()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "data", Value: doc.Data}}}},
	)
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", rec.GetID(), err)
	}
	if res.MatchedCount == 0 {
		return isolation.ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Delete(ctx context.Context, scope isolation.Scope, id string) error {
	if scope.IsZero() {
		return ErrUnscopedQuery
	}
	res, err := c.coll.DeleteOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: isolation.TenantField, Value: scope.TenantID()}})
	if err != nil {
		return fmt.Errorf("mongo: delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return isolation.ErrNotFound
	}
	return nil
}

func encodeRecord[T isolation.Record](scope isolation.Scope, rec T) (storedDocument, error) {
	if scope.IsZero() {
		return storedDocument{}, ErrUnscopedQuery
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return storedDocument{}, fmt.Errorf("mongo: encode record: %w", err)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return storedDocument{}, fmt.Errorf("mongo: record must encode as an object: %w", err)
	}
	return storedDocument{ID: rec.GetID(), TenantID: scope.TenantID(), Data: doc}, nil
}

func decodeRecord[T isolation.Record](doc storedDocument) (T, error) {
	var rec T
	data, err := bson.MarshalExtJSON(doc.Data, false, false)
	if err != nil {
		return rec, fmt.Errorf("mongo: decode record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("mongo: decode record: %w", err)
	}
	rec.SetTenantID(doc.TenantID)
	return rec, nil
}
