package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, cfg)
	require.NoError(t, err)
	return store
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{})
	assert.Error(t, err)
}

func TestPutObjectUploadsUnderPrefix(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/sekolah-exports/o")
		assert.Equal(t, "runs/42/schools.csv", r.URL.Query().Get("name"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "NPSN,Nama")
		fmt.Fprintln(w, `{"name": "runs/42/schools.csv", "bucket": "sekolah-exports"}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "sekolah-exports", Prefix: "/runs/"})

	uri, err := store.PutObject(context.Background(), "42/schools.csv", "text/csv", strings.NewReader("NPSN,Nama\n"))
	require.NoError(t, err)
	assert.Equal(t, "gs://sekolah-exports/runs/42/schools.csv", uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	store := newTestStore(t, handler, Config{Bucket: "sekolah-exports"})

	_, err := store.PutObject(context.Background(), "schools.ttl", "text/turtle", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestPutObjectRequiresName(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler(), Config{Bucket: "sekolah-exports"})
	_, err := store.PutObject(context.Background(), " ", "", strings.NewReader("x"))
	assert.Error(t, err)
}
