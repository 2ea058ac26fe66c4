package tableio

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recordlink/internal/table"
)

// WriteCSV writes t with a header row. Missing values are written as empty
// fields.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return eris.Wrap(err, "tableio: write header")
	}
	row := make([]string, t.Schema().Len())
	for _, r := range t.Records() {
		for i := range row {
			row[i] = r.At(i).String()
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "tableio: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "tableio: flush")
	}
	return nil
}

// SaveCSV writes t to path, replacing any existing file.
func SaveCSV(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tableio: create %s", path)
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "tableio: close %s", path)
	}
	return nil
}
