package delivery

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal"
	"github.com/cohorttools/curator/internal/flatten"
	"github.com/cohorttools/curator/internal/registry"
	"github.com/cohorttools/curator/internal/transform"
)

type stubSource struct {
	records []*internal.Record
}

func (s *stubSource) Name() string { return "stub.samples" }

func (s *stubSource) Count(ctx context.Context) (int, error) { return len(s.records), nil }

func (s *stubSource) Close(ctx context.Context) error { return nil }

func (s *stubSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return &stubSnapshot{records: s.records}, nil
}

type stubSnapshot struct {
	records []*internal.Record
	pos     int
}

func (s *stubSnapshot) Close() error { return nil }

func (s *stubSnapshot) Next(ctx context.Context) (*internal.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

type memoryRepository struct {
	files map[string]string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{files: make(map[string]string)}
}

func (m *memoryRepository) Write(ctx context.Context, path string, reader io.Reader) error {
	bs, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.files[path] = string(bs)
	return nil
}

func (m *memoryRepository) Flush() error { return nil }

func sampleRecords() []*internal.Record {
	fields := []string{"SAMPLE_ID", "PATIENT_ID", "CONSENTED", "STOP_DATE"}
	return []*internal.Record{
		internal.NewRecord(fields, []any{"P-001-T01", "P-001", "YES", "200"}),
		internal.NewRecord(fields, []any{"P-002-T01", "P-002", "YES", "-1"}),
		internal.NewRecord(fields, []any{"P-003-T01", "P-003", "NO", "300"}),
	}
}

func newTestDelivery(t *testing.T, repo *memoryRepository, reg *registry.Registry) *Delivery {
	t.Helper()

	schema, err := flatten.NewSchema("SAMPLE_ID", "PATIENT_ID", "STOP_DATE")
	require.NoError(t, err)

	d, err := New(
		WithName("partner-a"),
		WithLogger(zap.NewNop()),
		WithSource(&stubSource{records: sampleRecords()}),
		WithRepository(repo),
		WithRegistry(reg),
		WithTransforms(transform.Chain{
			&transform.Filter{Field: "CONSENTED", Op: "eq", Value: "YES"},
		}),
		WithFile(FileSpec{
			Name: "data_timeline.txt",
			Flattener: flatten.New(
				schema,
				flatten.WithOverride("STOP_DATE", flatten.SentinelToEmpty("-1")),
			),
			IDField: "SAMPLE_ID",
		}),
	)
	require.NoError(t, err)
	return d
}

func TestDeliveryRun(t *testing.T) {
	ctx := context.Background()

	t.Run("first run routes everything to new", func(t *testing.T) {
		repo := newMemoryRepository()
		reg := registry.New(t.TempDir(), zap.NewNop())
		d := newTestDelivery(t, repo, reg)

		c, err := d.Run(ctx, uuid.Must(uuid.NewUUID()))
		require.NoError(t, err)

		assert.Equal(t, StateCompleted, d.State.Current())
		assert.Equal(t, 3, c.NumSourceRecords)
		assert.Equal(t, 2, c.NumRecordsProcessed)
		assert.Equal(t, 1, c.NumRecordsDropped)

		require.Len(t, c.Files, 1)
		assert.Equal(t, 2, c.Files[0].NumNew)
		assert.Equal(t, 0, c.Files[0].NumOld)

		assert.Equal(t,
			"SAMPLE_ID\tPATIENT_ID\tSTOP_DATE\n"+
				"P-001-T01\tP-001\t200\n"+
				"P-002-T01\tP-002\t\n",
			repo.files["data_timeline_new.txt"],
		)
		assert.Equal(t,
			"SAMPLE_ID\tPATIENT_ID\tSTOP_DATE\n",
			repo.files["data_timeline.txt"],
		)
	})

	t.Run("second run routes previously delivered samples to old", func(t *testing.T) {
		regDir := t.TempDir()
		reg := registry.New(regDir, zap.NewNop())

		first := newTestDelivery(t, newMemoryRepository(), reg)
		_, err := first.Run(ctx, uuid.Must(uuid.NewUUID()))
		require.NoError(t, err)

		repo := newMemoryRepository()
		second := newTestDelivery(t, repo, reg)
		c, err := second.Run(ctx, uuid.Must(uuid.NewUUID()))
		require.NoError(t, err)

		require.Len(t, c.Files, 1)
		assert.Equal(t, 0, c.Files[0].NumNew)
		assert.Equal(t, 2, c.Files[0].NumOld)
		assert.Contains(t, repo.files["data_timeline.txt"], "P-001-T01")
	})

	t.Run("catalog manifest is written", func(t *testing.T) {
		repo := newMemoryRepository()
		d := newTestDelivery(t, repo, registry.New(t.TempDir(), zap.NewNop()))

		runID := uuid.Must(uuid.NewUUID())
		_, err := d.Run(ctx, runID)
		require.NoError(t, err)

		var manifest map[string]any
		require.NoError(t, json.Unmarshal([]byte(repo.files[CatalogFileName]), &manifest))
		assert.Equal(t, runID.String(), manifest["delivery_id"])
		assert.Equal(t, "partner-a", manifest["delivery_name"])
		assert.Equal(t, true, manifest["completed"])
	})

	t.Run("filter on an unknown field fails the run", func(t *testing.T) {
		schema, err := flatten.NewSchema("SAMPLE_ID")
		require.NoError(t, err)

		d, err := New(
			WithName("partner-a"),
			WithSource(&stubSource{records: sampleRecords()}),
			WithRepository(newMemoryRepository()),
			WithTransforms(transform.Chain{
				&transform.Filter{Field: "CONSETNED", Op: "eq", Value: "YES"},
			}),
			WithFile(FileSpec{
				Name:      "data_timeline.txt",
				Flattener: flatten.New(schema),
			}),
		)
		require.NoError(t, err)

		_, err = d.Run(ctx, uuid.Must(uuid.NewUUID()))

		var notFound *transform.FieldNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, StateError, d.State.Current())
	})

	t.Run("schema mismatch fails the run", func(t *testing.T) {
		schema, err := flatten.NewSchema("SAMPLE_ID", "MISSING_FIELD")
		require.NoError(t, err)

		d, err := New(
			WithName("partner-a"),
			WithSource(&stubSource{records: sampleRecords()}),
			WithRepository(newMemoryRepository()),
			WithFile(FileSpec{
				Name:      "data_timeline.txt",
				Flattener: flatten.New(schema),
			}),
		)
		require.NoError(t, err)

		_, err = d.Run(ctx, uuid.Must(uuid.NewUUID()))
		require.Error(t, err)

		var notFound *flatten.FieldNotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, StateError, d.State.Current())
		assert.NotEmpty(t, d.Stats().LastError)
	})
}

func TestDeliveryNew(t *testing.T) {
	t.Run("requires a source", func(t *testing.T) {
		_, err := New(WithRepository(newMemoryRepository()))
		assert.Error(t, err)
	})

	t.Run("requires a staging file", func(t *testing.T) {
		_, err := New(
			WithSource(&stubSource{}),
			WithRepository(newMemoryRepository()),
		)
		assert.Error(t, err)
	})
}
