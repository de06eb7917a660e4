package delivery

import (
	"context"

	"github.com/cohorttools/curator/internal"
	"github.com/cohorttools/curator/internal/mongo"
	"github.com/cohorttools/curator/internal/sql"
)

// Source supplies the records of one extraction. Every record must carry
// all fields the staging schemas declare, or the run fails with a
// FieldNotFoundError.
type Source interface {
	Name() string
	Count(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	Close(ctx context.Context) error
}

// Snapshot is a one-shot record stream. Next returns io.EOF once the
// stream is exhausted.
type Snapshot interface {
	Next(ctx context.Context) (*internal.Record, error)
	Close() error
}

type sqlSource struct {
	*sql.Source
}

func (s sqlSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.Source.Snapshot(ctx)
}

// NewSQLSource adapts a sql.Source to the delivery Source contract.
func NewSQLSource(s *sql.Source) Source {
	return sqlSource{Source: s}
}

type mongoSource struct {
	*mongo.Source
}

func (s mongoSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.Source.Snapshot(ctx)
}

// NewMongoSource adapts a mongo.Source to the delivery Source contract.
// The source must be connected before the run starts.
func NewMongoSource(s *mongo.Source) Source {
	return mongoSource{Source: s}
}
