// Package worker implements the per-descriptor crawl pipeline: fetch, retry
// decision, extraction, child submission, mapping and sink hand-off.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/extract"
	"github.com/benangmerah/sekolah/internal/metrics"
	"github.com/benangmerah/sekolah/internal/place"
	"github.com/benangmerah/sekolah/internal/rdf"
	"github.com/benangmerah/sekolah/internal/sink"
)

// Sink receives one school at a time from concurrent workers.
type Sink interface {
	AddSchool(ctx context.Context, record crawler.SchoolRecord, triples []rdf.Triple) error
}

// Config controls Worker behavior.
type Config struct {
	// SiteRoot is the base every descriptor URL is resolved against.
	SiteRoot   string
	MaxRetries int
}

// Worker handles one page descriptor per call and is safe for concurrent use.
type Worker struct {
	cfg       Config
	base      *url.URL
	fetcher   crawler.Fetcher
	submitter crawler.Submitter
	sink      Sink
	mapper    rdf.Mapper
	logger    *zap.Logger
	now       func() time.Time
}

// New constructs a Worker.
func New(cfg Config, fetcher crawler.Fetcher, submitter crawler.Submitter, sink Sink, logger *zap.Logger) (*Worker, error) {
	base, err := url.Parse(cfg.SiteRoot)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("site root %q must be an absolute URL", cfg.SiteRoot)
	}
	if fetcher == nil || submitter == nil || sink == nil {
		return nil, fmt.Errorf("fetcher, submitter and sink are required")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		cfg:       cfg,
		base:      base,
		fetcher:   fetcher,
		submitter: submitter,
		sink:      sink,
		mapper:    rdf.NewMapper(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle processes page. Only sink failures and run cancellation are
// returned; every other failure ends the branch after being logged.
func (w *Worker) Handle(ctx context.Context, page crawler.PageDescriptor) error {
	logger := w.logger.With(
		zap.String("url", page.URL),
		zap.String("name", page.Name),
		zap.Stringer("level", page.Level),
		zap.Int("retry", page.RetryCount),
	)
	target, err := w.resolve(page.URL)
	if err != nil {
		logger.Error("invalid page url", zap.Error(err))
		metrics.ObservePage(page.Level.String(), metrics.StatusFailed)
		return nil
	}

	logger.Info("processing page")
	resp, err := w.fetcher.Fetch(ctx, crawler.FetchRequest{URL: target})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("fetch %s: %w", target, ctx.Err())
		}
		w.retry(page, err, logger)
		return nil
	}
	metrics.ObserveFetch(resp.Duration)
	logger.Debug("successfully loaded page",
		zap.Int("status", resp.StatusCode), zap.Int("bytes", len(resp.Body)), zap.Duration("duration", resp.Duration))

	doc, err := extract.Parse(resp.Body)
	if err != nil {
		logger.Error("page parse failed", zap.Error(err))
		metrics.ObservePage(page.Level.String(), metrics.StatusMismatch)
		return nil
	}
	result, err := extract.For(page.Level).Extract(doc, page)
	if err != nil {
		logger.Error("page extraction failed", zap.Error(err))
		metrics.ObservePage(page.Level.String(), metrics.StatusMismatch)
		return nil
	}

	for _, child := range result.Children {
		logger.Debug("adding page to queue", zap.String("child", child.Name), zap.Stringer("child_level", child.Level))
		w.submitter.Submit(child)
	}
	if result.School != nil {
		if err := w.addSchool(ctx, target, *result.School, logger); err != nil {
			return err
		}
	}
	metrics.ObservePage(page.Level.String(), metrics.StatusSuccess)
	return nil
}

func (w *Worker) addSchool(ctx context.Context, source string, record crawler.SchoolRecord, logger *zap.Logger) error {
	record.PlaceURI = place.URI(record.Fields)
	record.SourceURL = source
	record.FetchedAt = w.now()
	triples := w.mapper.Map(record.Fields)

	err := w.sink.AddSchool(ctx, record, triples)
	switch {
	case errors.Is(err, sink.ErrDuplicateSchool):
		logger.Warn("duplicate school skipped", zap.String("npsn", record.NPSN))
		return nil
	case err != nil:
		return fmt.Errorf("sink school %s: %w", record.NPSN, err)
	}
	logger.Info("school recorded", zap.String("npsn", record.NPSN), zap.Int("triples", len(triples)))
	return nil
}

// retry resubmits page while attempts remain. A page is fetched at most
// MaxRetries+1 times.
func (w *Worker) retry(page crawler.PageDescriptor, cause error, logger *zap.Logger) {
	if page.RetryCount < w.cfg.MaxRetries {
		logger.Warn("page fetch failed, retrying", zap.Error(cause))
		metrics.ObserveRetry()
		metrics.ObservePage(page.Level.String(), metrics.StatusRetry)
		w.submitter.Submit(page.Retry())
		return
	}
	logger.Error("page fetch failed",
		zap.Error(fmt.Errorf("%w after %d attempts: %w", crawler.ErrRetriesExhausted, page.RetryCount+1, cause)),
		zap.String("path", page.Path()))
	metrics.ObserveTerminalFailure(page.Level.String())
	metrics.ObservePage(page.Level.String(), metrics.StatusFailed)
}

func (w *Worker) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	return w.base.ResolveReference(u).String(), nil
}
