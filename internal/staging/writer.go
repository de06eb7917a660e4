package staging

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal"
	"github.com/cohorttools/curator/internal/flatten"
)

type Option func(*Writer)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// Writer accumulates one staging file: a single header line followed by
// one flattened line per record. Close ships the buffered file to the
// repository under the configured name. Appending the line terminator is
// owned here, not by the flattener.
type Writer struct {
	name       string
	flattener  *flatten.Flattener
	repository internal.Repository
	logger     *zap.Logger

	buf     bytes.Buffer
	records int
}

func New(name string, flattener *flatten.Flattener, repository internal.Repository, opts ...Option) *Writer {
	w := &Writer{
		name:       name,
		flattener:  flattener,
		repository: repository,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.buf.WriteString(flattener.Schema().Header())
	w.buf.WriteByte('\n')
	return w
}

func (w *Writer) Name() string {
	return w.name
}

// Records returns the number of data lines written so far.
func (w *Writer) Records() int {
	return w.records
}

func (w *Writer) Write(record flatten.Getter) error {
	line, err := w.flattener.Flatten(record)
	if err != nil {
		return err
	}

	w.buf.WriteString(line)
	w.buf.WriteByte('\n')
	w.records++
	return nil
}

func (w *Writer) Close(ctx context.Context) error {
	w.logger.Info("closing staging file",
		zap.String("name", w.name),
		zap.Int("records", w.records),
	)
	return w.repository.Write(ctx, w.name, &w.buf)
}
