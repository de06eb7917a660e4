package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal"
	"github.com/cohorttools/curator/internal/catalog"
	"github.com/cohorttools/curator/internal/flatten"
	"github.com/cohorttools/curator/internal/registry"
	"github.com/cohorttools/curator/internal/staging"
	"github.com/cohorttools/curator/internal/transform"
)

// CatalogFileName is written alongside the staging files on every run.
const CatalogFileName = "catalog.json"

// FileSpec describes one staging file produced by a run. When IDField is
// set the file is split into new/old variants driven by the registry.
type FileSpec struct {
	Name      string
	Flattener *flatten.Flattener
	IDField   string
}

type Stats struct {
	State         State     `json:"state"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
	SourceRecords int       `json:"source_records"`
	Processed     int       `json:"processed"`
	Dropped       int       `json:"dropped"`
	New           int       `json:"new"`
	Old           int       `json:"old"`
	LastError     string    `json:"last_error,omitempty"`
}

type Option func(*Delivery)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Delivery) {
		d.logger = logger
	}
}

func WithName(name string) Option {
	return func(d *Delivery) {
		d.name = name
	}
}

func WithSource(source Source) Option {
	return func(d *Delivery) {
		d.source = source
	}
}

func WithRepository(repository internal.Repository) Option {
	return func(d *Delivery) {
		d.repository = repository
	}
}

func WithTransforms(chain transform.Chain) Option {
	return func(d *Delivery) {
		d.transforms = chain
	}
}

func WithRegistry(r *registry.Registry) Option {
	return func(d *Delivery) {
		d.registry = r
	}
}

func WithFile(spec FileSpec) Option {
	return func(d *Delivery) {
		d.files = append(d.files, spec)
	}
}

// Delivery orchestrates one consented-subset extraction: snapshot the
// source, transform each record, flatten it onto every staging schema and
// ship the staged files plus a catalog to the repository.
type Delivery struct {
	name       string
	logger     *zap.Logger
	source     Source
	repository internal.Repository
	transforms transform.Chain
	registry   *registry.Registry
	files      []FileSpec

	State *FSM

	statsMu sync.RWMutex
	stats   Stats
}

func New(opts ...Option) (*Delivery, error) {
	d := &Delivery{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.source == nil {
		return nil, fmt.Errorf("delivery requires a source")
	}
	if d.repository == nil {
		return nil, fmt.Errorf("delivery requires a repository")
	}
	if len(d.files) == 0 {
		return nil, fmt.Errorf("delivery requires at least one staging file")
	}

	d.State = NewFSM(
		FSMWithInitialState(StateCreated),
		FSMWithLogger(d.logger.Named("fsm")),
	)
	d.stats.State = StateCreated

	return d, nil
}

func (d *Delivery) Name() string {
	return d.name
}

func (d *Delivery) Close(ctx context.Context) error {
	return d.source.Close(ctx)
}

func (d *Delivery) Stats() Stats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()

	stats := d.stats
	stats.State = d.State.Current()
	return stats
}

type fileWriter struct {
	spec   FileSpec
	plain  *staging.Writer
	split  *staging.SplitWriter
	router *flatten.Router
}

func (w *fileWriter) write(record *internal.Record) (flatten.Bucket, error) {
	if w.split != nil {
		return w.split.Write(record)
	}
	return "", w.plain.Write(record)
}

func (w *fileWriter) close(ctx context.Context) error {
	if w.split != nil {
		return w.split.Close(ctx)
	}
	return w.plain.Close(ctx)
}

func (w *fileWriter) summary() catalog.File {
	if w.split != nil {
		return catalog.File{
			Name:       w.spec.Name,
			NumRecords: w.split.NewRecords() + w.split.OldRecords(),
			NumNew:     w.split.NewRecords(),
			NumOld:     w.split.OldRecords(),
		}
	}
	return catalog.File{
		Name:       w.spec.Name,
		NumRecords: w.plain.Records(),
	}
}

// Run executes a single delivery. The run ID namespaces logs and the
// catalog; the repository prefix (configured by the caller) keeps runs
// from overwriting each other.
func (d *Delivery) Run(ctx context.Context, runID uuid.UUID) (*catalog.Catalog, error) {
	c, err := d.run(ctx, runID)
	if err != nil {
		d.State.Transition(StateError)
		d.statsMu.Lock()
		d.stats.LastError = err.Error()
		d.statsMu.Unlock()
		return nil, err
	}
	return c, nil
}

func (d *Delivery) run(ctx context.Context, runID uuid.UUID) (*catalog.Catalog, error) {
	if err := d.State.Transition(StateExtracting); err != nil {
		return nil, err
	}

	d.statsMu.Lock()
	d.stats.StartedAt = time.Now()
	d.statsMu.Unlock()

	d.logger.Info("starting delivery",
		zap.String("delivery_name", d.name),
		zap.String("run_id", runID.String()),
		zap.String("source", d.source.Name()),
	)

	expected, err := d.source.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting source records: %w", err)
	}

	seen := map[string]struct{}{}
	if d.registry != nil {
		seen, err = d.registry.Load(ctx, d.name)
		if err != nil {
			return nil, fmt.Errorf("loading registry: %w", err)
		}
	}

	writers := make([]*fileWriter, len(d.files))
	for i, spec := range d.files {
		w := &fileWriter{spec: spec}
		if spec.IDField != "" {
			w.router = flatten.NewSeenRouter(spec.IDField, seen)
			w.split = staging.NewSplit(
				w.router,
				staging.New(staging.NewFileName(spec.Name), spec.Flattener, d.repository, staging.WithLogger(d.logger)),
				staging.New(spec.Name, spec.Flattener, d.repository, staging.WithLogger(d.logger)),
			)
		} else {
			w.plain = staging.New(spec.Name, spec.Flattener, d.repository, staging.WithLogger(d.logger))
		}
		writers[i] = w
	}

	snapshot, err := d.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting source: %w", err)
	}
	defer snapshot.Close()

	delivered := make(map[string]struct{})

	for {
		record, err := snapshot.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		d.statsMu.Lock()
		d.stats.SourceRecords++
		d.statsMu.Unlock()

		keep := true
		if d.transforms != nil {
			var terr error
			record, keep, terr = d.transforms.Transform(record)
			if terr != nil {
				return nil, fmt.Errorf("transforming record: %w", terr)
			}
		}
		if !keep {
			d.statsMu.Lock()
			d.stats.Dropped++
			d.statsMu.Unlock()
			continue
		}

		for _, w := range writers {
			bucket, err := w.write(record)
			if err != nil {
				return nil, fmt.Errorf("staging %s: %w", w.spec.Name, err)
			}

			if w.router != nil {
				id, err := w.router.ID(record)
				if err != nil {
					return nil, err
				}
				delivered[id] = struct{}{}

				d.statsMu.Lock()
				if bucket == flatten.BucketNew {
					d.stats.New++
				} else {
					d.stats.Old++
				}
				d.statsMu.Unlock()
			}
		}

		d.statsMu.Lock()
		d.stats.Processed++
		d.statsMu.Unlock()
	}

	if err := d.State.Transition(StateDelivering); err != nil {
		return nil, err
	}

	for _, w := range writers {
		if err := w.close(ctx); err != nil {
			return nil, fmt.Errorf("delivering %s: %w", w.spec.Name, err)
		}
	}

	stats := d.Stats()
	c := &catalog.Catalog{
		DeliveryID:          runID.String(),
		DeliveryName:        d.name,
		StartTime:           stats.StartedAt,
		EndTime:             time.Now(),
		Source:              d.source.Name(),
		NumSourceRecords:    expected,
		NumRecordsProcessed: stats.Processed,
		NumRecordsDropped:   stats.Dropped,
		Completed:           true,
	}
	for _, w := range writers {
		c.Files = append(c.Files, w.summary())
	}

	bs, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := d.repository.Write(ctx, CatalogFileName, bytes.NewReader(bs)); err != nil {
		return nil, fmt.Errorf("writing catalog: %w", err)
	}

	if d.registry != nil {
		for id := range seen {
			delivered[id] = struct{}{}
		}
		if err := d.registry.Save(ctx, d.name, delivered); err != nil {
			return nil, fmt.Errorf("saving registry: %w", err)
		}
	}

	if err := d.repository.Flush(); err != nil {
		return nil, err
	}

	if err := d.State.Transition(StateCompleted); err != nil {
		return nil, err
	}

	d.statsMu.Lock()
	d.stats.CompletedAt = time.Now()
	d.statsMu.Unlock()

	d.logger.Info("delivery completed",
		zap.String("delivery_name", d.name),
		zap.String("run_id", runID.String()),
		zap.Int("processed", stats.Processed),
		zap.Int("dropped", stats.Dropped),
	)

	return c, nil
}
