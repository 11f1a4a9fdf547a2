package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one file waiting for analysis.
type Job struct {
	Path        string
	CompanyID   string
	UserID      string
	Context     string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}

// Handler processes a single job. Errors are logged; the job is not retried.
type Handler func(ctx context.Context, job Job) error
