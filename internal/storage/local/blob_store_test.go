package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benangmerah/sekolah/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("CreatesMissingDir", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "published")
		store, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		assert.NotNil(t, store)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingDir", func(t *testing.T) {
		t.Parallel()
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("DirIsFile", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{Dir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "run-1/schools.ttl", "text/turtle", strings.NewReader("@prefix : <x> ."))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(dir, "run-1", "schools.ttl"), uri)

	// #nosec G304 -- test reads a file it just wrote.
	got, err := os.ReadFile(filepath.Join(dir, "run-1", "schools.ttl"))
	require.NoError(t, err)
	assert.Equal(t, "@prefix : <x> .", string(got))
}

func TestPutObjectRejectsBadPaths(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	for _, path := range []string{"", "  ", "../outside.csv", "a/../../outside.csv"} {
		_, err := store.PutObject(context.Background(), path, "", strings.NewReader("x"))
		assert.Error(t, err, "path %q", path)
	}
}
