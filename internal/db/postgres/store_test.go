package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/query"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

var entryColumns = []string{
	"id", "raw_query", "structured_query", "results_count", "empty_result",
	"latency_ms", "language", "degraded", "created_at",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewWithPool(mock), mock
}

func TestAppend_Parameterized(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO search_history`).
		WithArgs("id-1", "bmw x5 до 3 млн", pgxmock.AnyArg(), 7, false, int64(120), "ru", false, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Append(context.Background(), searchlog.Entry{
		ID:              "id-1",
		RawQuery:        "bmw x5 до 3 млн",
		StructuredQuery: query.StructuredQuery{Brand: query.Str("BMW"), PriceMax: query.Int(3_000_000)},
		Timestamp:       ts,
		ResultCount:     7,
		LatencyMS:       120,
		Language:        "ru",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_Error(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO search_history`).WillReturnError(errors.New("connection reset"))

	err := s.Append(context.Background(), searchlog.Entry{ID: "id-2", Timestamp: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert search id-2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntries_Since(t *testing.T) {
	s, mock := newMockStore(t)
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ts := since.Add(time.Hour)

	mock.ExpectQuery(`FROM search_history WHERE created_at >= \$1 ORDER BY created_at ASC`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows(entryColumns).
			AddRow("a", "камри", []byte(`{"brand":"Toyota","keywords":["камри"],"exclusions":[]}`), 3, false, int64(40), "ru", false, ts).
			AddRow("b", "zaz", []byte(`{"keywords":[],"exclusions":[]}`), 0, true, int64(15), "en", true, ts.Add(time.Minute)))

	entries, err := s.Entries(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a", entries[0].ID)
	require.NotNil(t, entries[0].StructuredQuery.Brand)
	assert.Equal(t, "Toyota", *entries[0].StructuredQuery.Brand)
	assert.Equal(t, []string{"камри"}, entries[0].StructuredQuery.Keywords.Values())
	assert.True(t, entries[1].IsEmpty)
	assert.True(t, entries[1].Degraded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntries_WholeLog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM search_history ORDER BY created_at ASC`).
		WithArgs().
		WillReturnRows(pgxmock.NewRows(entryColumns))

	entries, err := s.Entries(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(entryColumns).
			AddRow("z", "audi a6", []byte(`{}`), 2, false, int64(30), "en", false, time.Now()))

	entries, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "audi a6", entries[0].RawQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM search_history`).WillReturnError(errors.New("relation does not exist"))

	_, err := s.Recent(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query recent searches")
}

func TestSourceCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM raw_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"source", "raw", "normalized"}).
			AddRow("avito", int64(100), int64(30)).
			AddRow("drom", int64(50), int64(45)))

	counts, err := s.SourceCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "avito", counts[0].Source)
	assert.Equal(t, 100, counts[0].Raw)
	assert.Equal(t, 30, counts[0].Normalized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrandDocumentCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM normalized_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"brand", "count"}).
			AddRow("bmw", int64(12)).
			AddRow("toyota", int64(4)))

	counts, err := s.BrandDocumentCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bmw": 12, "toyota": 4}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS search_history`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
}
