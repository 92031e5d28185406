package crawler

import (
	"context"
	"errors"
	"io"
)

// ErrRetriesExhausted marks a descriptor dropped after its last allowed fetch attempt.
var ErrRetriesExhausted = errors.New("fetch retries exhausted")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Submitter accepts new crawl work.
type Submitter interface {
	Submit(page PageDescriptor)
}

// RecordStore persists school records outside the local output files.
type RecordStore interface {
	StoreSchool(ctx context.Context, runID string, record SchoolRecord) error
}

// BlobStore writes finished output artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes per-school completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
