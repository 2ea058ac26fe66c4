package tableio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/recordlink/internal/fetcher"
	"github.com/sells-group/recordlink/internal/table"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("movies.csv"))
	assert.Equal(t, FormatTSV, DetectFormat("principals.TSV"))
	assert.Equal(t, FormatXLSX, DetectFormat("cast.xlsx"))
	assert.Equal(t, FormatCSV, DetectFormat("noext"))
}

func TestFromSheet_InfersTypes(t *testing.T) {
	sheet := &fetcher.Sheet{
		Header: []string{"title", "year", "rating", "adult", "empty"},
		Rows: [][]string{
			{"Heat", "1995", "8.3", "False", ""},
			{"Alien", "", "8", "true", ""},
			{"", "1979", "NaN"},
		},
	}

	tbl, err := FromSheet(sheet)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	r0 := tbl.Row(0)
	assert.Equal(t, table.String("Heat"), r0.Value("title"))
	assert.Equal(t, table.Int(1995), r0.Value("year"))
	assert.Equal(t, table.Float(8.3), r0.Value("rating"))
	assert.Equal(t, table.Bool(false), r0.Value("adult"))
	assert.True(t, r0.Value("empty").IsMissing())

	r1 := tbl.Row(1)
	assert.True(t, r1.Value("year").IsMissing())
	assert.Equal(t, table.Float(8), r1.Value("rating"))

	r2 := tbl.Row(2)
	assert.True(t, r2.Value("title").IsMissing())
	assert.True(t, r2.Value("rating").IsMissing(), "NaN is missing")
	assert.True(t, r2.Value("adult").IsMissing(), "short rows are padded")
}

func TestFromSheet_MixedColumnIsString(t *testing.T) {
	tbl, err := FromSheet(&fetcher.Sheet{
		Header: []string{"id"},
		Rows:   [][]string{{"1"}, {"tt0113277"}},
	})
	require.NoError(t, err)
	assert.Equal(t, table.String("1"), tbl.Row(0).Value("id"))
}

func TestFromSheet_Errors(t *testing.T) {
	_, err := FromSheet(&fetcher.Sheet{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")

	_, err = FromSheet(&fetcher.Sheet{Header: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 2 fields")

	_, err = FromSheet(&fetcher.Sheet{Header: []string{"a", "a"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrInvalidArgument)
}

func TestLoad_CSVAndTSV(t *testing.T) {
	csvPath := writeFile(t, "movies.csv", "title,year\nHeat,1995\n")
	tbl, err := Load(context.Background(), csvPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "year"}, tbl.Columns())
	assert.Equal(t, table.Int(1995), tbl.Row(0).Value("year"))

	tsvPath := writeFile(t, "pivot.tsv", "tconst\tnconst\ntt1\tnm1\n")
	tbl, err = Load(context.Background(), tsvPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"tconst", "nconst"}, tbl.Columns())
}

func TestLoad_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Cast")
	require.NoError(t, err)
	for _, rowData := range [][]string{{"name", "birth_year"}, {"Al Pacino", "1940"}} {
		row := sheet.AddRow()
		for _, c := range rowData {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "cast.xlsx")
	require.NoError(t, f.Save(path))

	tbl, err := Load(context.Background(), path, Options{SheetName: "Cast"})
	require.NoError(t, err)
	assert.Equal(t, table.Int(1940), tbl.Row(0).Value("birth_year"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tableio: open")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	_, err := Load(context.Background(), "x.json", Options{Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "json"`)
}

func TestWriteCSV(t *testing.T) {
	tbl, err := table.FromRows([]string{"title", "roi", "year"},
		[]any{"Heat", 200.5, 1995},
		[]any{"Alien, The", nil, 1979},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "title,roi,year\nHeat,200.5,1995\n\"Alien, The\",,1979\n", buf.String())
}

func TestSaveCSV_RoundTrip(t *testing.T) {
	tbl, err := table.FromRows([]string{"key", "count"}, []any{"heat_1995", 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, SaveCSV(path, tbl))

	back, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, table.Int(3), back.Row(0).Value("count"))
	assert.Equal(t, table.String("heat_1995"), back.Row(0).Value("key"))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.org/movies.csv"))
	assert.True(t, IsRemote("http://example.org/cast.xlsx?raw=1"))
	assert.False(t, IsRemote("data/movies.csv"))
	assert.False(t, IsRemote("/abs/movies.csv"))
	assert.False(t, IsRemote("ftp://example.org/movies.csv"))
}

func TestLoad_RemoteRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("title,year\nHeat,1995\n"))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxAttempts: 2})
	tbl, err := Load(context.Background(), srv.URL+"/movies.csv", Options{Fetcher: f})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, table.Int(1995), tbl.Row(0).Value("year"))
}

func TestLoad_RemoteTSVFromURLPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("title\tyear\nAlien\t1979\n"))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})
	tbl, err := Load(context.Background(), srv.URL+"/movies.tsv?dl=1", Options{Fetcher: f})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "year"}, tbl.Columns())
}

func TestLoad_RemoteErrors(t *testing.T) {
	_, err := Load(context.Background(), "https://example.org/movies.csv", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})
	_, err = Load(context.Background(), srv.URL+"/missing.csv", Options{Fetcher: f})
	require.Error(t, err)
	var se *fetcher.StatusError
	assert.ErrorAs(t, err, &se)
}
