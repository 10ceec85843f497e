package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/storefront/pkg/audit"
)

// AuditStorage persists audit events in a MongoDB collection. Event ids are
// the document ids, so re-sending a batch after a partial failure is safe.
type AuditStorage struct {
	coll *mongo.Collection
}

func NewAuditStorage(db *mongo.Database, collection string) *AuditStorage {
	return &AuditStorage{coll: db.Collection(collection)}
}

// EnsureIndexes creates the indexes used by violation lookups.
func (s *AuditStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "attempted_tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "correlation_id", Value: 1}}},
	})
	return err
}

func (s *AuditStorage) Store(ctx context.Context, event audit.Event) error {
	_, err := s.coll.InsertOne(ctx, event)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mongo: store audit event: %w", err)
	}
	return nil
}

// StoreBatch inserts events unordered. Duplicates of already stored events
// are ignored; any other write error fails the batch.
func (s *AuditStorage) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := s.coll.InsertMany(ctx, events, options.InsertMany().SetOrdered(false))
	if err == nil {
		return nil
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil {
		for _, we := range bwe.WriteErrors {
			if !mongo.IsDuplicateKeyError(we) {
				return fmt.Errorf("mongo: store audit batch: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("mongo: store audit batch: %w", err)
}

// Query returns matching events, newest first.
func (s *AuditStorage) Query(ctx context.Context, c audit.Criteria) ([]audit.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if c.Limit > 0 {
		opts.SetLimit(int64(c.Limit))
	}
	if c.Offset > 0 {
		opts.SetSkip(int64(c.Offset))
	}
	cur, err := s.coll.Find(ctx, criteriaFilter(c), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: query audit events: %w", err)
	}
	var events []audit.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongo: decode audit events: %w", err)
	}
	return events, nil
}

func (s *AuditStorage) Count(ctx context.Context, c audit.Criteria) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, criteriaFilter(c))
	if err != nil {
		return 0, fmt.Errorf("mongo: count audit events: %w", err)
	}
	return n, nil
}
