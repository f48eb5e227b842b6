package aicache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stacksift/api/internal/ai"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "ai_cache"

type mongoEntry struct {
	Key       string            `bson:"key"`
	Results   []mongoSuggestion `bson:"results"`
	CreatedAt time.Time         `bson:"createdAt"`
}

type mongoSuggestion struct {
	Title       string   `bson:"title"`
	URL         string   `bson:"url"`
	Description string   `bson:"description"`
	Category    string   `bson:"category"`
	Tags        []string `bson:"tags"`
}

// MongoStore keeps the cache in a MongoDB collection with a unique index on
// key and a TTL index on createdAt, so the server expires entries itself.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	ttl    time.Duration
	now    func() time.Time
}

// NewMongoStore connects to uri and ensures the collection indexes exist.
func NewMongoStore(ctx context.Context, uri, database string, ttl time.Duration) (*MongoStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
		ttl:    ttl,
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetName("key_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("createdAt_ttl").SetExpireAfterSeconds(int32(s.ttl / time.Second)),
		},
	})
	if err != nil {
		return fmt.Errorf("creating ai cache indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Lookup(ctx context.Context, key string) ([]ai.Suggestion, bool, error) {
	// The TTL monitor runs about once a minute, so filter on age as well.
	filter := bson.M{
		"key":       key,
		"createdAt": bson.M{"$gt": s.now().Add(-s.ttl)},
	}

	var entry mongoEntry
	err := s.coll.FindOne(ctx, filter).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading ai cache: %w", err)
	}
	if len(entry.Results) == 0 {
		return nil, false, nil
	}

	results := make([]ai.Suggestion, len(entry.Results))
	for i, r := range entry.Results {
		results[i] = ai.Suggestion(r)
	}
	return results, true, nil
}

func (s *MongoStore) Store(ctx context.Context, key string, results []ai.Suggestion) error {
	if len(results) == 0 {
		return ErrEmptyResults
	}

	docs := make([]mongoSuggestion, len(results))
	for i, r := range results {
		docs[i] = mongoSuggestion(r)
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"results": docs, "createdAt": s.now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Concurrent upserts for a new key can race on the unique index.
		// One entry survives either way.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("writing ai cache: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: the TTL index removes expired documents.
func (s *MongoStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
