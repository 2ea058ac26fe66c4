package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recordlink/internal/table"
)

func castMovies(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRows([]string{"movie_key", "actor_key", "age", "roi_perctg"},
		[]any{"heat_1995", "alpacino_1940", 55, 210.5},
		[]any{"alien_1979", "sigourneyweaver_1949", 30, 7},
	)
	require.NoError(t, err)
	return tbl
}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, pgx.Identifier{"test_table"}, []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"results", "t"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFrom(context.Background(), mock, pgx.Identifier{"results", "t"}, []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `COPY INTO "results"."t"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTable_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"movie_key", "actor_key", "age", "roi_perctg"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("TRUNCATE").WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"results", "cast_movies"}, cols).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := WriteTable(context.Background(), mock, SinkConfig{Table: "results.cast_movies", Truncate: true}, castMovies(t))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTable_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"movie_key", "actor_key", "age", "roi_perctg"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_cast_movies"}, cols).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := WriteTable(context.Background(), mock, SinkConfig{
		Table: "cast_movies",
		Keys:  []string{"movie_key", "actor_key"},
	}, castMovies(t))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTable_CopyErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"cast_movies"}, []string{"movie_key", "actor_key", "age", "roi_perctg"}).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = WriteTable(context.Background(), mock, SinkConfig{Table: "cast_movies"}, castMovies(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTable_Validation(t *testing.T) {
	_, err := WriteTable(context.Background(), nil, SinkConfig{}, castMovies(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table specified")

	_, err = WriteTable(context.Background(), nil, SinkConfig{Table: "x", Keys: []string{"nope"}}, castMovies(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrInvalidArgument)

	withGap, err := table.FromRows([]string{"k"}, []any{"a"}, []any{nil})
	require.NoError(t, err)
	_, err = WriteTable(context.Background(), nil, SinkConfig{Table: "x", Keys: []string{"k"}}, withGap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rows have a missing key")
}

func TestCreateTableSQL(t *testing.T) {
	tbl, err := table.FromRows([]string{"key", "n", "x", "flag", "mixed", "empty"},
		[]any{"a", 1, 1.5, true, 1, nil},
		[]any{"b", 2, 2, false, "two", nil},
	)
	require.NoError(t, err)

	got := createTableSQL(pgx.Identifier{"results", "t"}, tbl, []string{"key"})
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "results"."t" ("key" TEXT, "n" BIGINT, "x" DOUBLE PRECISION, "flag" BOOLEAN, "mixed" TEXT, "empty" TEXT, PRIMARY KEY ("key"))`,
		got)

	rows := tableRows(tbl)
	assert.Equal(t, []any{"a", int64(1), 1.5, true, "1", nil}, rows[0])
	assert.Equal(t, []any{"b", int64(2), 2.0, false, "two", nil}, rows[1])
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, `"simple"`, identifier("simple").Sanitize())
	assert.Equal(t, `"results"."cast_movies"`, identifier("results.cast_movies").Sanitize())
}
