package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/api"
	"github.com/benangmerah/sekolah/internal/config"
	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/dispatcher"
	collyfetcher "github.com/benangmerah/sekolah/internal/fetcher/colly"
	"github.com/benangmerah/sekolah/internal/logging"
	"github.com/benangmerah/sekolah/internal/metrics"
	"github.com/benangmerah/sekolah/internal/output/table"
	"github.com/benangmerah/sekolah/internal/output/turtle"
	memorypublisher "github.com/benangmerah/sekolah/internal/publisher/memory"
	pubsubpublisher "github.com/benangmerah/sekolah/internal/publisher/pubsub"
	"github.com/benangmerah/sekolah/internal/rdf"
	"github.com/benangmerah/sekolah/internal/sink"
	"github.com/benangmerah/sekolah/internal/storage/gcs"
	"github.com/benangmerah/sekolah/internal/storage/local"
	"github.com/benangmerah/sekolah/internal/storage/postgres"
	"github.com/benangmerah/sekolah/internal/worker"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd(v *viper.Viper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the reference site and write the school outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadViper(v, opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.verbose {
				cfg.Logging.Level = "debug"
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCrawl(ctx, cfg, logger)
		},
	}
}

// runCrawl performs one complete crawl with cfg.
func runCrawl(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	runID := id.String()
	logger = logger.With(zap.String("run_id", runID))
	metrics.Init()

	res := &resources{logger: logger}
	defer res.release()

	out, err := openOutputs(cfg.Output, res)
	if err != nil {
		return err
	}
	if out.Blobs, err = openBlobStore(ctx, cfg.Storage, res); err != nil {
		return err
	}
	if out.Store, err = openSchoolStore(ctx, cfg.DB, res); err != nil {
		return err
	}
	if out.Publisher, err = openPublisher(ctx, cfg.PubSub, res); err != nil {
		return err
	}

	schools, err := sink.New(sink.Config{
		RunID:        runID,
		Topic:        cfg.PubSub.TopicName,
		UploadPrefix: cfg.Output.UploadPrefix,
	}, out, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	headers := http.Header{}
	if cfg.Crawler.IdentificationHeader != "" {
		headers.Set(cfg.Crawler.IdentificationHeader, cfg.Crawler.IdentificationValue)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		Headers:   headers,
	})

	var w *worker.Worker
	d := dispatcher.New(cfg.Crawler.Threshold, dispatcher.HandlerFunc(
		func(ctx context.Context, page crawler.PageDescriptor) error {
			return w.Handle(ctx, page)
		}), logger)
	w, err = worker.New(worker.Config{
		SiteRoot:   cfg.Crawler.SiteRoot,
		MaxRetries: cfg.Crawler.MaxRetries,
	}, fetcher, d, schools, logger)
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}

	var status *api.Server
	if cfg.Server.Enabled {
		status = api.NewServer(runID, d, schools, logger)
		res.serve(ctx, status, fmt.Sprintf(":%d", cfg.Server.Port))
		status.SetState(api.StateRunning)
	}

	logger.Info("crawl started",
		zap.String("site_root", cfg.Crawler.SiteRoot),
		zap.Int("threshold", cfg.Crawler.Threshold),
		zap.Int("max_retries", cfg.Crawler.MaxRetries))
	d.Submit(crawler.PageDescriptor{URL: cfg.Crawler.SiteRoot, Name: cfg.Crawler.RootName})

	runErr := d.Run(ctx)
	if runErr != nil {
		logger.Error("crawl stopped early, writing partial outputs", zap.Error(runErr))
	}
	finishErr := schools.Finish(context.WithoutCancel(ctx))
	if status != nil {
		if runErr != nil || finishErr != nil {
			status.SetState(api.StateFailed)
		} else {
			status.SetState(api.StateDrained)
		}
	}
	if err := errors.Join(runErr, finishErr); err != nil {
		return err
	}

	logger.Info("crawl finished",
		zap.Int("schools", schools.Count()),
		zap.Int("pages", d.Stats().Completed),
		zap.Strings("uploaded", schools.Uploaded()))
	return nil
}

// openOutputs creates the local output files. CSV and JSON are skipped when
// their paths are empty.
func openOutputs(cfg config.OutputConfig, res *resources) (sink.Outputs, error) {
	var out sink.Outputs

	ttl, err := res.create(cfg.Turtle)
	if err != nil {
		return out, err
	}
	out.Triples = turtle.NewWriter(ttl, rdf.Prefixes)
	out.Closers = append(out.Closers, ttl)
	out.Artifacts = append(out.Artifacts, sink.Artifact{Path: cfg.Turtle, ContentType: "text/turtle"})

	tables := []struct {
		path        string
		contentType string
		newWriter   func(io.Writer) sink.RowWriter
	}{
		{cfg.CSV, "text/csv", func(w io.Writer) sink.RowWriter { return table.NewCSV(w) }},
		{cfg.JSON, "application/json", func(w io.Writer) sink.RowWriter { return table.NewJSON(w) }},
	}
	for _, t := range tables {
		if t.path == "" {
			continue
		}
		f, err := res.create(t.path)
		if err != nil {
			return out, err
		}
		out.Rows = append(out.Rows, t.newWriter(f))
		out.Closers = append(out.Closers, f)
		out.Artifacts = append(out.Artifacts, sink.Artifact{Path: t.path, ContentType: t.contentType})
	}
	return out, nil
}

func openBlobStore(ctx context.Context, cfg config.StorageConfig, res *resources) (crawler.BlobStore, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		store, err := local.New(local.Config{Dir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		store, client, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		res.add(client.Close)
		return store, nil
	default:
		return nil, nil
	}
}

func openSchoolStore(ctx context.Context, cfg config.DBConfig, res *resources) (crawler.RecordStore, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	store, err := postgres.NewSchoolStore(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
	if err != nil {
		return nil, err
	}
	res.add(func() error { store.Close(); return nil })
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func openPublisher(ctx context.Context, cfg config.PubSubConfig, res *resources) (crawler.Publisher, error) {
	if cfg.TopicName == "" {
		return nil, nil
	}
	if cfg.DryRun {
		res.logger.Info("pubsub dry run, notifications are logged only", zap.String("topic", cfg.TopicName))
		return memorypublisher.New(res.logger), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	res.add(client.Close)
	publisher := pubsubpublisher.New(client)
	res.add(func() error { publisher.Stop(); return nil })
	return publisher, nil
}

// resources releases clients and files in reverse order of acquisition.
type resources struct {
	logger   *zap.Logger
	releases []func() error
}

func (r *resources) add(release func() error) {
	r.releases = append(r.releases, release)
}

// create opens path for writing. Files are closed by the sink on Finish and
// again here only if the run never reached it.
func (r *resources) create(path string) (*os.File, error) {
	// #nosec G304 -- output paths come from configuration.
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	r.add(func() error {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
		return nil
	})
	return f, nil
}

// serve runs the status server until release.
func (r *resources) serve(ctx context.Context, srv *api.Server, addr string) {
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(srvCtx, addr) }()
	r.add(func() error {
		cancel()
		return <-done
	})
}

func (r *resources) release() {
	for i := len(r.releases) - 1; i >= 0; i-- {
		if err := r.releases[i](); err != nil {
			r.logger.Warn("release resource failed", zap.Error(err))
		}
	}
	r.releases = nil
}
