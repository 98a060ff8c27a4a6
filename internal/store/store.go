package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"story-intake-go/internal/logger"
	"story-intake-go/internal/types"
)

// ErrPersistence wraps any failure to write a story. Fatal for the
// submission: without an id there is nothing to attach downstream work to.
var ErrPersistence = errors.New("story persistence failed")

// Store is the durable home of submitted stories, one MongoDB collection,
// append-only. Constructed once at startup and shared by all requests; the
// underlying mongo.Client is safe for concurrent use.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *logger.Logger
}

func New(uri, databaseName, collectionName string) (*Store, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(databaseName).Collection(collectionName),
		log:        logger.New(),
	}, nil
}

// Connect verifies the connection at startup, retrying the ping with bounded
// backoff so a slow-starting database does not kill the process. This is the
// only retry in the service; the per-request pipeline is single-attempt.
func (s *Store) Connect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	op := func() error {
		return s.client.Ping(ctx, nil)
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// InsertStory appends one story and returns the generated identifier.
func (s *Store) InsertStory(ctx context.Context, story *types.Story) (string, error) {
	res, err := s.collection.InsertOne(ctx, story)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", res.InsertedID), nil
}

// ListStories returns all stored stories, newest first. Used by the export
// tooling, not by the submission pipeline.
func (s *Store) ListStories(ctx context.Context) ([]types.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer cursor.Close(ctx)

	var out []types.Story
	for cursor.Next(ctx) {
		var doc struct {
			ID          primitive.ObjectID `bson:"_id"`
			types.Story `bson:",inline"`
		}
		if err := cursor.Decode(&doc); err != nil {
			s.log.WithError(err).Warn("skipping undecodable story document")
			continue
		}
		story := doc.Story
		story.ID = doc.ID.Hex()
		out = append(out, story)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return out, nil
}
