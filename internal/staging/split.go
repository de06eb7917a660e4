package staging

import (
	"context"
	"path"
	"strings"

	"github.com/cohorttools/curator/internal/flatten"
)

// SplitWriter routes each record into a "new" or an "old" staging file
// based on whether its identifier is in the router's known-new set.
// Downstream import tooling merges new records into the existing study
// and leaves old ones untouched.
type SplitWriter struct {
	router *flatten.Router
	new    *Writer
	old    *Writer
}

func NewSplit(router *flatten.Router, newWriter, oldWriter *Writer) *SplitWriter {
	return &SplitWriter{
		router: router,
		new:    newWriter,
		old:    oldWriter,
	}
}

func (s *SplitWriter) Write(record flatten.Getter) (flatten.Bucket, error) {
	bucket, err := s.router.Classify(record)
	if err != nil {
		return "", err
	}

	switch bucket {
	case flatten.BucketNew:
		err = s.new.Write(record)
	default:
		err = s.old.Write(record)
	}
	return bucket, err
}

func (s *SplitWriter) NewRecords() int {
	return s.new.Records()
}

func (s *SplitWriter) OldRecords() int {
	return s.old.Records()
}

func (s *SplitWriter) Close(ctx context.Context) error {
	if err := s.new.Close(ctx); err != nil {
		return err
	}
	return s.old.Close(ctx)
}

// NewFileName derives the name for the known-new variant of a staging
// file by inserting a "_new" suffix before the extension.
func NewFileName(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_new" + ext
}
