package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/benangmerah/sekolah/internal/crawler"
)

func TestStoreSchoolInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSchoolStoreWithPool(mock, "")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := crawler.SchoolRecord{
		NPSN:        "12345678",
		Fields:      crawler.RawFieldMap{"NPSN": "12345678"},
		Coordinates: crawler.Coordinates{Latitude: "-6.1", Longitude: "106.8"},
		PlaceURI:    "http://sw.benangmerah.net/place/idn/dki-jakarta/a/b",
		SourceURL:   "http://referensi.data.kemdikbud.go.id/tabs.php?npsn=12345678",
		FetchedAt:   now,
	}

	mock.ExpectExec("INSERT INTO schools").
		WithArgs(
			"run-1",
			rec.NPSN,
			[]byte(`{"NPSN":"12345678"}`),
			rec.Coordinates.Latitude,
			rec.Coordinates.Longitude,
			rec.PlaceURI,
			rec.SourceURL,
			rec.FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.StoreSchool(context.Background(), "run-1", rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSchoolWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSchoolStoreWithPool(mock, "sekolah")
	require.NoError(t, err)

	dbErr := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO sekolah").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(dbErr)

	err = store.StoreSchool(context.Background(), "run-1", crawler.SchoolRecord{NPSN: "1"})
	require.ErrorIs(t, err, dbErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSchoolValidatesInput(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSchoolStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Error(t, store.StoreSchool(context.Background(), "", crawler.SchoolRecord{NPSN: "1"}))
	require.Error(t, store.StoreSchool(context.Background(), "run-1", crawler.SchoolRecord{}))
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSchoolStoreWithPool(mock, "")
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schools").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSchoolStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSchoolStoreWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewSchoolStoreWithPool(mock, "schools; DROP TABLE x")
	require.Error(t, err)
}

func TestNewSchoolStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewSchoolStore(context.Background(), Config{})
	require.Error(t, err)
}
