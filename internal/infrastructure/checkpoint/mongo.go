package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"react-agent/internal/application/port/output"
	"react-agent/internal/domain/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

var _ output.CheckpointStore = (*MongoStore)(nil)

const (
	DefaultDatabase   = "react_agent"
	DefaultCollection = "checkpoints"
)

// MongoStore keeps one document per thread, keyed by the thread id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	db, err := databaseFromURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(db).Collection(DefaultCollection),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, cp entity.Checkpoint) error {
	if cp.ThreadID == "" {
		return errEmptyThread
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": cp.ThreadID}, cp, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, threadID string) (*entity.Checkpoint, bool, error) {
	var cp entity.Checkpoint
	err := s.coll.FindOne(ctx, bson.M{"_id": threadID}).Decode(&cp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find checkpoint: %w", err)
	}
	return &cp, true, nil
}

func (s *MongoStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": threadID}); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// databaseFromURI returns the database named in the URI path, or
// DefaultDatabase when there is none.
func databaseFromURI(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongodb uri: %w", err)
	}
	if cs.Database == "" {
		return DefaultDatabase, nil
	}
	return cs.Database, nil
}
