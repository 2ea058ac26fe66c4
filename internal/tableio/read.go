// Package tableio loads tables from CSV and XLSX files with per-column type
// inference, and writes tables back out as CSV.
package tableio

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recordlink/internal/fetcher"
	"github.com/sells-group/recordlink/internal/table"
)

// Format identifies a source file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Options configures Load.
type Options struct {
	// Format overrides detection from the file extension.
	Format    Format
	Delimiter rune
	SheetName string
	SkipRows  int
	// Fetcher downloads http(s) sources. Remote paths fail without one.
	Fetcher fetcher.Fetcher
}

// IsRemote reports whether path is an http or https URL.
func IsRemote(path string) bool {
	u, err := url.Parse(path)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DetectFormat maps a file extension to a Format. Unknown extensions are CSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Load reads a file into a typed table. Remote sources are downloaded to a
// temporary file through opts.Fetcher first.
func Load(ctx context.Context, path string, opts Options) (*table.Table, error) {
	if IsRemote(path) {
		return loadRemote(ctx, path, opts)
	}

	format := opts.Format
	if format == "" {
		format = DetectFormat(path)
	}

	switch format {
	case FormatXLSX:
		sheet, err := fetcher.ReadXLSX(ctx, path, fetcher.XLSXOptions{SheetName: opts.SheetName, SkipRows: opts.SkipRows})
		if err != nil {
			return nil, eris.Wrapf(err, "tableio: load %s", path)
		}
		return FromSheet(sheet)
	case FormatCSV, FormatTSV:
		return loadDelimited(ctx, path, format, opts)
	default:
		return nil, eris.Errorf("tableio: unsupported format %q", format)
	}
}

func loadRemote(ctx context.Context, rawURL string, opts Options) (*table.Table, error) {
	if opts.Fetcher == nil {
		return nil, eris.Errorf("tableio: no fetcher for remote source %s", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "tableio: parse %s", rawURL)
	}
	if opts.Format == "" {
		opts.Format = DetectFormat(u.Path)
	}

	dir, err := os.MkdirTemp("", "recordlink-*")
	if err != nil {
		return nil, eris.Wrap(err, "tableio: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	local := filepath.Join(dir, "source."+string(opts.Format))
	if _, err := opts.Fetcher.DownloadToFile(ctx, rawURL, nil, local); err != nil {
		return nil, eris.Wrapf(err, "tableio: download %s", u.Redacted())
	}
	opts.Fetcher = nil
	return Load(ctx, local, opts)
}

func loadDelimited(ctx context.Context, path string, format Format, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tableio: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	delim := opts.Delimiter
	if delim == 0 && format == FormatTSV {
		delim = '\t'
	}
	sheet, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{Delimiter: delim, LazyQuotes: true})
	if err != nil {
		return nil, eris.Wrapf(err, "tableio: load %s", path)
	}
	return FromSheet(sheet)
}

// FromSheet converts raw string rows into a table. Each column takes the
// narrowest type every non-empty cell parses as: int, then float, then bool,
// then string. Empty cells are Missing.
func FromSheet(sheet *fetcher.Sheet) (*table.Table, error) {
	if len(sheet.Header) == 0 {
		return nil, eris.New("tableio: missing header row")
	}
	width := len(sheet.Header)
	for i, row := range sheet.Rows {
		if len(row) > width {
			return nil, eris.Errorf("tableio: row %d has %d fields, header has %d", i+1, len(row), width)
		}
	}

	t, err := table.New(sheet.Header...)
	if err != nil {
		return nil, eris.Wrap(err, "tableio: header")
	}

	kinds := make([]table.Kind, width)
	for c := range width {
		kinds[c] = inferKind(sheet.Rows, c)
	}

	vals := make([]table.Value, width)
	for _, row := range sheet.Rows {
		for c := range width {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			vals[c] = parseCell(cell, kinds[c])
		}
		if err := t.Append(vals...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func inferKind(rows [][]string, col int) table.Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, row := range rows {
		if col >= len(row) || row[col] == "" {
			continue
		}
		seen = true
		cell := row[col]
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return table.KindString
		}
	}
	switch {
	case !seen:
		return table.KindMissing
	case isInt:
		return table.KindInt
	case isFloat:
		return table.KindFloat
	case isBool:
		return table.KindBool
	default:
		return table.KindString
	}
}

func parseCell(cell string, kind table.Kind) table.Value {
	if cell == "" {
		return table.Missing()
	}
	switch kind {
	case table.KindInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return table.Int(n)
	case table.KindFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		return table.Float(f)
	case table.KindBool:
		b, _ := parseBool(cell)
		return table.Bool(b)
	default:
		return table.String(cell)
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
