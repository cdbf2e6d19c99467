// Package mongostore provides a MongoDB-backed session storage using the
// official mongo driver. Session state is stored one document per id with an
// expires_at field suitable for a TTL index; EnsureIndexes creates it.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessions"
)

// DefaultCollection is the collection name session documents live in.
const DefaultCollection = "sessions"

// record is the stored document shape. Data stays JSON-encoded so the
// payload round-trips byte-identically with the core's container.
type record struct {
	ID        string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// Store implements sessions.Storage on top of a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

// New creates a Store over the named collection of db. An empty name uses
// DefaultCollection.
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{coll: db.Collection(collection)}
}

// EnsureIndexes creates the TTL index on expires_at so MongoDB reclaims
// expired documents itself. Call once at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create session ttl index: %w", err)
	}
	return nil
}

// liveFilter matches the document for id that has not expired. The TTL
// monitor only runs periodically, so expiry is also checked here.
func liveFilter(id string, now time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expires_at", Value: nil}},
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}}},
		}},
	}
}

// Load fetches the state stored under id. Expired or missing documents are
// (nil, nil).
func (s *Store) Load(ctx context.Context, id string) (sessions.Data, error) {
	var rec record
	err := s.coll.FindOne(ctx, liveFilter(id, time.Now())).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}

	var data sessions.Data
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %q: %w", id, err)
	}
	return data, nil
}

// Save upserts the document for id, fully replacing data and expiration.
func (s *Store) Save(ctx context.Context, id string, data sessions.Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session %q: %w", id, err)
	}

	rec := record{ID: id, Data: raw}
	if ttl > 0 {
		t := time.Now().Add(ttl)
		rec.ExpiresAt = &t
	}

	_, err = s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %q: %w", id, err)
	}
	return nil
}

// Remove deletes the document for id and reports whether one existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("failed to remove session %q: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

// GenerateID returns a new UUID session identifier.
func (s *Store) GenerateID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

// RemoveExpired deletes all documents past their expiration and returns the
// count. Normally the TTL index handles this; the method exists for
// deployments that disable the TTL monitor.
func (s *Store) RemoveExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: time.Now()}}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
