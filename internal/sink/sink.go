// Package sink accumulates the triples and records produced by concurrent
// school page completions and emits them through the configured writers.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/metrics"
	"github.com/benangmerah/sekolah/internal/rdf"
)

// ErrDuplicateSchool rejects a second record for an NPSN already accepted in this run.
var ErrDuplicateSchool = errors.New("duplicate school")

// ErrFinished rejects records added after Finish.
var ErrFinished = errors.New("sink finished")

// TripleWriter receives each school's triples as one block.
type TripleWriter interface {
	WriteTriples(triples []rdf.Triple) error
	Close() error
}

// RowWriter receives the complete record set once the crawl drains.
type RowWriter interface {
	WriteRows(records []crawler.SchoolRecord) error
}

// Artifact is a finished output file published to the blob store.
type Artifact struct {
	Path        string
	ContentType string
}

// Config identifies the run and where notifications and uploads go.
type Config struct {
	RunID        string
	Topic        string
	UploadPrefix string
}

// Outputs wires the sink to its writers. Only Triples is required.
type Outputs struct {
	Triples   TripleWriter
	Rows      []RowWriter
	Store     crawler.RecordStore
	Publisher crawler.Publisher
	Blobs     crawler.BlobStore
	// Closers run after the writers are flushed and before uploads.
	Closers   []io.Closer
	Artifacts []Artifact
}

// Notification is published once per accepted school.
type Notification struct {
	RunID    string `json:"run_id"`
	NPSN     string `json:"npsn"`
	PlaceURI string `json:"place_uri"`
	Triples  int    `json:"triples"`
}

// Sink is safe for concurrent use.
type Sink struct {
	cfg    Config
	out    Outputs
	logger *zap.Logger

	mu        sync.Mutex
	seen      map[string]struct{}
	records   []crawler.SchoolRecord
	triples   int
	finished  bool
	finishErr error
	uploaded  []string
}

// New creates a Sink.
func New(cfg Config, out Outputs, logger *zap.Logger) (*Sink, error) {
	if out.Triples == nil {
		return nil, fmt.Errorf("triple writer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		cfg:    cfg,
		out:    out,
		logger: logger,
		seen:   make(map[string]struct{}),
	}, nil
}

// AddSchool records one school. The triples are written as one block so
// concurrent schools never interleave. Writer and record store failures are
// returned; notification failures are only logged.
func (s *Sink) AddSchool(ctx context.Context, record crawler.SchoolRecord, triples []rdf.Triple) error {
	if err := s.accept(record, triples); err != nil {
		return err
	}
	metrics.ObserveSchool(len(triples))

	if s.out.Store != nil {
		if err := s.out.Store.StoreSchool(ctx, s.cfg.RunID, record); err != nil {
			return fmt.Errorf("store school %s: %w", record.NPSN, err)
		}
	}
	if s.out.Publisher != nil && s.cfg.Topic != "" {
		id, err := s.out.Publisher.Publish(ctx, s.cfg.Topic, Notification{
			RunID:    s.cfg.RunID,
			NPSN:     record.NPSN,
			PlaceURI: record.PlaceURI,
			Triples:  len(triples),
		})
		if err != nil {
			s.logger.Warn("school notification failed", zap.String("npsn", record.NPSN), zap.Error(err))
		} else {
			s.logger.Debug("school notification published",
				zap.String("npsn", record.NPSN), zap.String("message_id", id))
		}
	}
	return nil
}

func (s *Sink) accept(record crawler.SchoolRecord, triples []rdf.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrFinished
	}
	if _, dup := s.seen[record.NPSN]; dup {
		return fmt.Errorf("school %s: %w", record.NPSN, ErrDuplicateSchool)
	}
	if err := s.out.Triples.WriteTriples(triples); err != nil {
		return fmt.Errorf("write triples for %s: %w", record.NPSN, err)
	}
	s.seen[record.NPSN] = struct{}{}
	record.Fields = record.Fields.Clone()
	s.records = append(s.records, record)
	s.triples += len(triples)
	return nil
}

// Finish writes the rows, closes the triple stream and the output files, then
// uploads the artifacts when a blob store is configured. Later calls return
// the first result.
func (s *Sink) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.finishErr
	}
	s.finished = true
	s.finishErr = s.finish(ctx)
	return s.finishErr
}

func (s *Sink) finish(ctx context.Context) error {
	var errs []error
	for _, w := range s.out.Rows {
		if err := w.WriteRows(s.records); err != nil {
			errs = append(errs, fmt.Errorf("write rows: %w", err))
		}
	}
	if err := s.out.Triples.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close triples: %w", err))
	}
	for _, c := range s.out.Closers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("outputs written",
		zap.Int("schools", len(s.records)), zap.Int("triples", s.triples))
	if s.out.Blobs == nil {
		return nil
	}
	for _, a := range s.out.Artifacts {
		uri, err := s.upload(ctx, a)
		if err != nil {
			return err
		}
		s.uploaded = append(s.uploaded, uri)
		s.logger.Info("output uploaded", zap.String("path", a.Path), zap.String("uri", uri))
	}
	return nil
}

func (s *Sink) upload(ctx context.Context, a Artifact) (string, error) {
	// #nosec G304 -- artifact paths come from configuration.
	f, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := path.Join(s.cfg.UploadPrefix, s.cfg.RunID, filepath.Base(a.Path))
	uri, err := s.out.Blobs.PutObject(ctx, name, a.ContentType, f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", a.Path, err)
	}
	return uri, nil
}

// Count returns the number of accepted schools.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Uploaded returns the URIs of uploaded artifacts.
func (s *Sink) Uploaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploaded...)
}
