package shadowindex

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"automergekv/host"
)

// StructuredSink persists a Structured-format projection. The default
// implementation writes through host.Host's own structured-json key
// type; MongoStructuredSink is a drop-in alternative for deployments
// that keep structured projections in a Mongo collection alongside (or
// instead of) the host's own storage, grounded on the pack's
// mongo-driver/v2 dependency.
type StructuredSink interface {
	Put(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, bool, error)
}

// hostSink is the default StructuredSink, backed by host.Host.
type hostSink struct {
	host host.Host
}

func (s *hostSink) Put(ctx context.Context, key string, value any) error {
	if err := s.host.RegisterKey(ctx, key, host.KeyTypeStructuredJSON); err != nil {
		return err
	}
	return s.host.PutStructuredJSON(ctx, key, value)
}

func (s *hostSink) Get(ctx context.Context, key string) (any, bool, error) {
	return s.host.GetStructuredJSON(ctx, key)
}

// MongoStructuredSink stores Structured projections as upserted
// documents in a Mongo collection, one per projected key.
type MongoStructuredSink struct {
	coll *mongo.Collection
}

// NewMongoStructuredSink wraps coll for structured projection storage.
func NewMongoStructuredSink(coll *mongo.Collection) *MongoStructuredSink {
	return &MongoStructuredSink{coll: coll}
}

func (s *MongoStructuredSink) Put(ctx context.Context, key string, value any) error {
	filter := bson.D{{Key: "_key", Value: key}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("shadowindex: upsert structured projection for %q: %w", key, err)
	}
	return nil
}

func (s *MongoStructuredSink) Get(ctx context.Context, key string) (any, bool, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.D{{Key: "_key", Value: key}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("shadowindex: read structured projection for %q: %w", key, err)
	}
	return doc["value"], true, nil
}

var (
	_ StructuredSink = (*hostSink)(nil)
	_ StructuredSink = (*MongoStructuredSink)(nil)
)
