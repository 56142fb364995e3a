package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"subtraction-builder/internal/domain"
)

// collectionName is the collection holding subtraction documents.
const collectionName = "subtraction"

// Mongo is a Store backed by a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ConnectMongo connects to uri and returns a Store over the subtraction
// collection of database db.
func ConnectMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}
	return &Mongo{
		client: client,
		coll:   client.Database(db).Collection(collectionName),
	}, nil
}

// UpdateStats upserts the computed FASTA stats onto the record.
func (m *Mongo) UpdateStats(ctx context.Context, id string, gc domain.Composition, count int, lengths domain.LengthStats) error {
	update := bson.M{"$set": bson.M{
		"gc":      gc,
		"count":   count,
		"lengths": lengths,
	}}
	opts := options.Update().SetUpsert(true)
	if _, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts); err != nil {
		return &Error{Op: "update stats", ID: id, Err: err}
	}
	return nil
}

// SetReady flips the ready flag once index files exist on disk.
func (m *Mongo) SetReady(ctx context.Context, id string) error {
	result, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"ready": true}})
	if err != nil {
		return &Error{Op: "set ready", ID: id, Err: err}
	}
	if result.MatchedCount == 0 {
		return &Error{Op: "set ready", ID: id, Err: ErrNotFound}
	}
	return nil
}

// Delete removes the record, treating an absent record as already deleted.
func (m *Mongo) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return &Error{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// Get fetches one record by subtraction id.
func (m *Mongo) Get(ctx context.Context, id string) (domain.SubtractionRecord, error) {
	var record domain.SubtractionRecord
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.SubtractionRecord{}, &Error{Op: "get", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return domain.SubtractionRecord{}, &Error{Op: "get", ID: id, Err: err}
	}
	return record, nil
}

// Ping verifies the deployment answers on the primary.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

// Close disconnects from the deployment.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
