package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/table"
	"github.com/sells-group/recordlink/internal/tableio"
)

func loadTable(ctx context.Context, path, sheet string) (*table.Table, error) {
	t, err := tableio.Load(ctx, path, tableio.Options{SheetName: sheet})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("table loaded", zap.String("path", path), zap.Int("rows", t.Len()))
	return t, nil
}

// writeTable writes t as CSV to path, or to stdout when path is empty or "-".
func writeTable(path string, t *table.Table) error {
	if path == "" || path == "-" {
		return tableio.WriteCSV(os.Stdout, t)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create output dir for %s", path)
	}
	if err := tableio.SaveCSV(path, t); err != nil {
		return err
	}
	zap.L().Info("table written", zap.String("path", path), zap.Int("rows", t.Len()))
	return nil
}
