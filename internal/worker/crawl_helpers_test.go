package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/dispatcher"
	collyfetcher "github.com/benangmerah/sekolah/internal/fetcher/colly"
	"github.com/benangmerah/sekolah/internal/output/turtle"
	"github.com/benangmerah/sekolah/internal/rdf"
)

func turtleWriter(w io.Writer) *turtle.Writer {
	return turtle.NewWriter(w, rdf.Prefixes)
}

// newCrawl wires a threshold-1 dispatcher to a worker backed by the colly fetcher.
func newCrawl(t *testing.T, root string, out Sink) (*dispatcher.Dispatcher, *Worker) {
	t.Helper()

	var w *Worker
	d := dispatcher.New(1, dispatcher.HandlerFunc(func(ctx context.Context, page crawler.PageDescriptor) error {
		return w.Handle(ctx, page)
	}), zap.NewNop())
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second})
	w, err := New(Config{SiteRoot: root, MaxRetries: 2}, fetcher, d, out, zap.NewNop())
	require.NoError(t, err)
	return d, w
}
