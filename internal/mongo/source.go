package mongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal"
)

type Option func(*Source)

func WithDatabase(database string) Option {
	return func(s *Source) {
		s.database = database
	}
}

func WithCollection(collection string) Option {
	return func(s *Source) {
		s.collection = collection
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// Source snapshots a MongoDB collection into a stream of records.
// Delivery is snapshot-based, so a plain Find cursor is used rather than
// a change stream.
type Source struct {
	client     *mongo.Client
	uri        string
	database   string
	collection string
	logger     *zap.Logger
}

func NewSource(uri string, opts ...Option) *Source {
	s := &Source{
		uri:    uri,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return fmt.Sprintf("%s.%s", s.database, s.collection)
}

func (s *Source) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		return err
	}

	s.client = client
	s.logger.Info("connected to mongodb",
		zap.String("database", s.database),
		zap.String("collection", s.collection))
	return nil
}

func (s *Source) Count(ctx context.Context) (int, error) {
	coll := s.client.Database(s.database).Collection(s.collection)
	c, err := coll.CountDocuments(ctx, bson.D{})
	return int(c), err
}

func (s *Source) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

type Snapshot struct {
	cursor *mongo.Cursor
}

func (s *Snapshot) Close() error {
	return s.cursor.Close(context.Background())
}

func (s *Snapshot) Next(ctx context.Context) (*internal.Record, error) {
	if !s.cursor.Next(ctx) {
		if err := s.cursor.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	// bson.D preserves document key order, which drives column order in
	// the staging file.
	var doc bson.D
	if err := s.cursor.Decode(&doc); err != nil {
		return nil, err
	}

	fields := make([]string, len(doc))
	values := make([]any, len(doc))
	for i, elem := range doc {
		fields[i] = elem.Key
		values[i] = elem.Value
	}

	return internal.NewRecord(fields, values), nil
}

func (s *Source) Snapshot(ctx context.Context) (*Snapshot, error) {
	coll := s.client.Database(s.database).Collection(s.collection)
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	return &Snapshot{cursor: cursor}, nil
}
