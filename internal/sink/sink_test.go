package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/output/table"
	"github.com/benangmerah/sekolah/internal/output/turtle"
	"github.com/benangmerah/sekolah/internal/publisher/memory"
	"github.com/benangmerah/sekolah/internal/rdf"
	blobmemory "github.com/benangmerah/sekolah/internal/storage/memory"
)

type recordingRows struct {
	mu      sync.Mutex
	calls   int
	records []crawler.SchoolRecord
}

func (r *recordingRows) WriteRows(records []crawler.SchoolRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.records = records
	return nil
}

type failingTriples struct{ err error }

func (f failingTriples) WriteTriples([]rdf.Triple) error { return f.err }
func (f failingTriples) Close() error                    { return nil }

type fakeStore struct {
	mu    sync.Mutex
	npsns []string
	err   error
}

func (f *fakeStore) StoreSchool(_ context.Context, runID string, record crawler.SchoolRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.npsns = append(f.npsns, runID+":"+record.NPSN)
	return nil
}

func school(npsn string) (crawler.SchoolRecord, []rdf.Triple) {
	rec := crawler.SchoolRecord{
		NPSN:     npsn,
		Fields:   crawler.RawFieldMap{crawler.FieldNPSN: npsn, "Nama": "SD " + npsn},
		PlaceURI: "http://sw.benangmerah.net/place/idn/a/b/c",
	}
	triples := []rdf.Triple{
		{Subject: rdf.SchoolSubject(npsn), Predicate: rdf.PredicateSameAs, Object: rdf.IRI(rdf.SchoolReference(npsn))},
		{Subject: rdf.SchoolSubject(npsn), Predicate: rdf.DapodikNamespace + "nama", Object: rdf.Literal("SD " + npsn)},
	}
	return rec, triples
}

func TestAddSchoolConcurrentWritesAreNotInterleaved(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rows := &recordingRows{}
	s, err := New(Config{RunID: "run-1"}, Outputs{
		Triples: turtle.NewWriter(&buf, rdf.Prefixes),
		Rows:    []RowWriter{rows},
	}, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec, triples := school(fmt.Sprintf("%08d", n))
			assert.NoError(t, s.AddSchool(context.Background(), rec, triples))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Finish(context.Background()))

	out := buf.String()
	for i := range 40 {
		npsn := fmt.Sprintf("%08d", i)
		block := "npsn:" + npsn + "\n" +
			"    owl:sameAs <" + rdf.SchoolReference(npsn) + "> ;\n" +
			"    :nama \"SD " + npsn + "\" .\n"
		assert.Contains(t, out, block)
	}
	assert.Equal(t, 40, s.Count())
	assert.Equal(t, 1, rows.calls)
	assert.Len(t, rows.records, 40)
}

func TestAddSchoolRejectsDuplicateNPSN(t *testing.T) {
	t.Parallel()

	s, err := New(Config{}, Outputs{Triples: turtle.NewWriter(&bytes.Buffer{}, rdf.Prefixes)}, nil)
	require.NoError(t, err)

	rec, triples := school("12345678")
	require.NoError(t, s.AddSchool(context.Background(), rec, triples))
	err = s.AddSchool(context.Background(), rec, triples)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSchool))
	assert.Equal(t, 1, s.Count())
}

func TestAddSchoolPropagatesWriterAndStoreErrors(t *testing.T) {
	t.Parallel()

	diskErr := errors.New("disk full")
	s, err := New(Config{}, Outputs{Triples: failingTriples{err: diskErr}}, nil)
	require.NoError(t, err)
	rec, triples := school("1")
	assert.ErrorIs(t, s.AddSchool(context.Background(), rec, triples), diskErr)
	assert.Equal(t, 0, s.Count(), "failed write must not record the school")

	dbErr := errors.New("db down")
	s, err = New(Config{RunID: "r"}, Outputs{
		Triples: turtle.NewWriter(&bytes.Buffer{}, rdf.Prefixes),
		Store:   &fakeStore{err: dbErr},
	}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.AddSchool(context.Background(), rec, triples), dbErr)
}

func TestAddSchoolStoresAndNotifies(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	pub := memory.New(zap.NewNop())
	s, err := New(Config{RunID: "run-7", Topic: "schools"}, Outputs{
		Triples:   turtle.NewWriter(&bytes.Buffer{}, rdf.Prefixes),
		Store:     store,
		Publisher: pub,
	}, zap.NewNop())
	require.NoError(t, err)

	rec, triples := school("12345678")
	require.NoError(t, s.AddSchool(context.Background(), rec, triples))

	assert.Equal(t, []string{"run-7:12345678"}, store.npsns)
	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "schools", msgs[0].Topic)
	var got Notification
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, Notification{
		RunID:    "run-7",
		NPSN:     "12345678",
		PlaceURI: rec.PlaceURI,
		Triples:  2,
	}, got)
}

func TestFinishIsIdempotentAndUploads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ttlPath := filepath.Join(dir, "schools.ttl")
	csvPath := filepath.Join(dir, "schools.csv")
	ttlFile, err := os.Create(ttlPath)
	require.NoError(t, err)
	csvFile, err := os.Create(csvPath)
	require.NoError(t, err)

	blobs := blobmemory.NewBlobStore()
	rows := &recordingRows{}
	artifacts := []Artifact{
		{Path: ttlPath, ContentType: "text/turtle"},
		{Path: csvPath, ContentType: "text/csv"},
	}
	s, err := New(Config{RunID: "run-1", UploadPrefix: "exports"}, Outputs{
		Triples:   turtle.NewWriter(ttlFile, rdf.Prefixes),
		Rows:      []RowWriter{table.NewCSV(csvFile), rows},
		Blobs:     blobs,
		Closers:   []io.Closer{ttlFile, csvFile},
		Artifacts: artifacts,
	}, zap.NewNop())
	require.NoError(t, err)

	rec, triples := school("12345678")
	require.NoError(t, s.AddSchool(context.Background(), rec, triples))
	require.NoError(t, s.Finish(context.Background()))
	require.NoError(t, s.Finish(context.Background()))
	assert.Equal(t, 1, rows.calls)

	assert.Equal(t, []string{"exports/run-1/schools.csv", "exports/run-1/schools.ttl"}, blobs.Paths())
	ttl, ok := blobs.Object("exports/run-1/schools.ttl")
	require.True(t, ok)
	assert.Contains(t, string(ttl), "npsn:12345678")
	csvData, ok := blobs.Object("exports/run-1/schools.csv")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(csvData), "NPSN,Nama,place_uri,source_url\n"))
	assert.Len(t, s.Uploaded(), 2)

	assert.ErrorIs(t, s.AddSchool(context.Background(), rec, triples), ErrFinished)
}

func TestNewRequiresTripleWriter(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Outputs{}, nil)
	assert.Error(t, err)
}
