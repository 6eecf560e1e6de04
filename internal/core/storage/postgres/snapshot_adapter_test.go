package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleRollup(revision int64) *aggregation.Rollup {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	return &aggregation.Rollup{
		Key: aggregation.Key{
			Dimension:   aggregation.DimensionGlobal,
			Granularity: aggregation.GranularityDay,
			RangeStart:  start,
			RangeEnd:    start.AddDate(0, 0, 1),
		},
		TotalQuantity: decimal.RequireFromString("42.5"),
		CountEvents:   3,
		BySlot:        aggregation.NewSlotTotals(),
		Revision:       revision,
		SourceRevision: revision,
		ComputedAt:     start.Add(20 * time.Hour),
	}
}

func TestSnapshotAdapter_SaveSkipsOlderRevision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewSnapshotAdapter(db)
	r := sampleRollup(5)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectSnapshotRevisionForUpdate)).
		WithArgs(r.Key.Signature()).
		WillReturnRows(sqlmock.NewRows([]string{"revision"}).AddRow(int64(9)))
	mock.ExpectRollback()

	require.NoError(t, adapter.SaveSnapshot(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAdapter_SaveInsertsFirstSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewSnapshotAdapter(db)
	r := sampleRollup(5)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectSnapshotRevisionForUpdate)).
		WithArgs(r.Key.Signature()).
		WillReturnRows(sqlmock.NewRows([]string{"revision"}))
	mock.ExpectExec(regexp.QuoteMeta(queryUpsertSnapshot)).
		WithArgs(r.Key.Signature(), int64(5), sqlmock.AnyArg(), r.ComputedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.SaveSnapshot(context.Background(), r))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAdapter_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewSnapshotAdapter(db)
	r := sampleRollup(7)
	payload, err := json.Marshal(r)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(queryLoadSnapshot)).
		WithArgs(r.Key.Signature()).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	loaded, err := adapter.LoadSnapshot(context.Background(), r.Key.Signature())
	require.NoError(t, err)
	require.Equal(t, int64(7), loaded.Revision)
	require.True(t, loaded.TotalQuantity.Equal(r.TotalQuantity))
	require.Equal(t, r.Key.Signature(), loaded.Key.Signature())

	mock.ExpectQuery(regexp.QuoteMeta(queryLoadSnapshot)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err = adapter.LoadSnapshot(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotAdapter_Prune(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewSnapshotAdapter(db)
	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(queryPruneSnapshots)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := adapter.PruneSnapshots(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
