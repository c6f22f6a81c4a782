package ports

import (
	"context"
	"io"
)

type ImageStore interface {
	// UploadImage stores an avatar and returns its public URL.
	UploadImage(ctx context.Context, r io.Reader, size int64) (string, error)
}

// ErrorReporter forwards unexpected failures to error tracking.
type ErrorReporter interface {
	CaptureException(err error)
}
