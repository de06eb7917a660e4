package internal

import (
	"context"
	"io"
)

// Repository is the destination for staged study files. Implementations
// deliver staged bytes to their backing store (local filesystem, object
// storage).
type Repository interface {
	Write(ctx context.Context, path string, reader io.Reader) error
	Flush() error
}
